// Package httpapi serves the scientists, planets and missions resources over
// HTTP using gin.
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"missioncore/internal/blob"
	"missioncore/internal/core"
	"missioncore/pkg/domain"
)

// Service is the subset of core.Service the handlers call.
type Service interface {
	PlanetDocuments(ctx context.Context, opts core.Options) ([]core.Document, error)
	PlanetDocument(ctx context.Context, id int64, opts core.Options) (core.Document, error)
	DeletePlanet(ctx context.Context, id int64) (core.Result, error)

	ScientistDocuments(ctx context.Context, opts core.Options) ([]core.Document, error)
	ScientistDocument(ctx context.Context, id int64, opts core.Options) (core.Document, error)
	CreateScientist(ctx context.Context, scientist core.Scientist) (core.Scientist, core.Result, error)
	UpdateScientist(ctx context.Context, id int64, patch core.ScientistPatch) (core.Scientist, core.Result, error)
	DeleteScientist(ctx context.Context, id int64) (core.Result, error)

	MissionDocuments(ctx context.Context, opts core.Options) ([]core.Document, error)
	MissionDocument(ctx context.Context, id int64, opts core.Options) (core.Document, error)
	CreateMission(ctx context.Context, mission core.Mission) (core.Mission, core.Result, error)
	UpdateMission(ctx context.Context, id int64, patch core.MissionPatch) (core.Mission, core.Result, error)
	DeleteMission(ctx context.Context, id int64) (core.Result, error)

	ListScientistArchives(ctx context.Context) ([]blob.Info, error)
}

var _ Service = (*core.Service)(nil)

// Response shapes per route.
var (
	scientistListOptions  = core.Options{Only: []string{"id", "name", "field_of_study"}}
	scientistWriteOptions = core.Options{Exclude: core.Exclude("missions")}
	planetListOptions     = core.Options{Only: []string{"id", "name", "distance_from_earth", "nearest_star"}}
	missionListOptions    = core.Options{Exclude: core.Exclude("scientist", "planet")}
)

const homeMessage = "We are home!"

// Handler binds the resource routes to a service.
type Handler struct {
	Service Service
	Log     logrus.FieldLogger
}

// NewHandler constructs a handler; a nil logger discards output.
func NewHandler(svc Service, log logrus.FieldLogger) *Handler {
	if log == nil {
		discard := logrus.New()
		discard.Out = io.Discard
		log = discard
	}
	return &Handler{Service: svc, Log: log}
}

// Register mounts every resource route on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/", h.home)

	r.GET("/scientists", h.listScientists)
	r.POST("/scientists", h.createScientist)
	r.GET("/scientists/:id", h.getScientist)
	r.PATCH("/scientists/:id", h.updateScientist)
	r.DELETE("/scientists/:id", h.deleteScientist)

	r.GET("/planets", h.listPlanets)
	r.GET("/planets/:id", h.getPlanet)
	r.DELETE("/planets/:id", h.deletePlanet)

	r.GET("/missions", h.listMissions)
	r.POST("/missions", h.createMission)
	r.GET("/missions/:id", h.getMission)
	r.PATCH("/missions/:id", h.updateMission)
	r.DELETE("/missions/:id", h.deleteMission)

	r.GET("/archives/scientists", h.listScientistArchives)
}

func (h *Handler) home(c *gin.Context) {
	c.String(http.StatusOK, homeMessage)
}

// Scientists

type scientistRequest struct {
	Name         *string `json:"name"`
	FieldOfStudy *string `json:"field_of_study"`
}

func (h *Handler) listScientists(c *gin.Context) {
	docs, err := h.Service.ScientistDocuments(c.Request.Context(), scientistListOptions)
	if err != nil {
		h.fail(c, domain.EntityScientist, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) createScientist(c *gin.Context) {
	var req scientistRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == nil || req.FieldOfStudy == nil {
		writeValidation(c)
		return
	}
	created, _, err := h.Service.CreateScientist(c.Request.Context(), core.Scientist{Name: *req.Name, FieldOfStudy: *req.FieldOfStudy})
	if err != nil {
		h.fail(c, domain.EntityScientist, err)
		return
	}
	h.renderScientist(c, http.StatusCreated, created.ID, scientistWriteOptions)
}

func (h *Handler) getScientist(c *gin.Context) {
	id, ok := pathID(c, domain.EntityScientist)
	if !ok {
		return
	}
	h.renderScientist(c, http.StatusOK, id, core.Options{})
}

func (h *Handler) updateScientist(c *gin.Context) {
	id, ok := pathID(c, domain.EntityScientist)
	if !ok {
		return
	}
	var patch core.ScientistPatch
	if !bindPatch(c, &patch) {
		return
	}
	if _, _, err := h.Service.UpdateScientist(c.Request.Context(), id, patch); err != nil {
		h.fail(c, domain.EntityScientist, err)
		return
	}
	h.renderScientist(c, http.StatusAccepted, id, scientistWriteOptions)
}

func (h *Handler) deleteScientist(c *gin.Context) {
	id, ok := pathID(c, domain.EntityScientist)
	if !ok {
		return
	}
	if _, err := h.Service.DeleteScientist(c.Request.Context(), id); err != nil {
		h.fail(c, domain.EntityScientist, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) renderScientist(c *gin.Context, status int, id int64, opts core.Options) {
	doc, err := h.Service.ScientistDocument(c.Request.Context(), id, opts)
	if err != nil {
		h.fail(c, domain.EntityScientist, err)
		return
	}
	c.JSON(status, doc)
}

// Planets

func (h *Handler) listPlanets(c *gin.Context) {
	docs, err := h.Service.PlanetDocuments(c.Request.Context(), planetListOptions)
	if err != nil {
		h.fail(c, domain.EntityPlanet, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) getPlanet(c *gin.Context) {
	id, ok := pathID(c, domain.EntityPlanet)
	if !ok {
		return
	}
	doc, err := h.Service.PlanetDocument(c.Request.Context(), id, core.Options{})
	if err != nil {
		h.fail(c, domain.EntityPlanet, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) deletePlanet(c *gin.Context) {
	id, ok := pathID(c, domain.EntityPlanet)
	if !ok {
		return
	}
	if _, err := h.Service.DeletePlanet(c.Request.Context(), id); err != nil {
		h.fail(c, domain.EntityPlanet, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Missions

type missionRequest struct {
	Name        *string `json:"name"`
	ScientistID *int64  `json:"scientist_id"`
	PlanetID    *int64  `json:"planet_id"`
}

func (h *Handler) listMissions(c *gin.Context) {
	docs, err := h.Service.MissionDocuments(c.Request.Context(), missionListOptions)
	if err != nil {
		h.fail(c, domain.EntityMission, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) createMission(c *gin.Context) {
	var req missionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == nil || req.ScientistID == nil || req.PlanetID == nil {
		writeValidation(c)
		return
	}
	created, _, err := h.Service.CreateMission(c.Request.Context(), core.Mission{
		Name:        *req.Name,
		ScientistID: *req.ScientistID,
		PlanetID:    *req.PlanetID,
	})
	if err != nil {
		h.fail(c, domain.EntityMission, err)
		return
	}
	h.renderMission(c, http.StatusCreated, created.ID)
}

func (h *Handler) getMission(c *gin.Context) {
	id, ok := pathID(c, domain.EntityMission)
	if !ok {
		return
	}
	h.renderMission(c, http.StatusOK, id)
}

func (h *Handler) updateMission(c *gin.Context) {
	id, ok := pathID(c, domain.EntityMission)
	if !ok {
		return
	}
	var patch core.MissionPatch
	if !bindPatch(c, &patch) {
		return
	}
	if _, _, err := h.Service.UpdateMission(c.Request.Context(), id, patch); err != nil {
		h.fail(c, domain.EntityMission, err)
		return
	}
	h.renderMission(c, http.StatusAccepted, id)
}

func (h *Handler) deleteMission(c *gin.Context) {
	id, ok := pathID(c, domain.EntityMission)
	if !ok {
		return
	}
	if _, err := h.Service.DeleteMission(c.Request.Context(), id); err != nil {
		h.fail(c, domain.EntityMission, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) renderMission(c *gin.Context, status int, id int64) {
	doc, err := h.Service.MissionDocument(c.Request.Context(), id, core.Options{})
	if err != nil {
		h.fail(c, domain.EntityMission, err)
		return
	}
	c.JSON(status, doc)
}

// Archives

func (h *Handler) listScientistArchives(c *gin.Context) {
	infos, err := h.Service.ListScientistArchives(c.Request.Context())
	if errors.Is(err, core.ErrArchiveDisabled) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Archive not configured"})
		return
	}
	if err != nil {
		h.fail(c, domain.EntityScientist, err)
		return
	}
	if infos == nil {
		infos = []blob.Info{}
	}
	c.JSON(http.StatusOK, infos)
}

// pathID parses the :id segment; non-numeric ids answer the entity's 404.
func pathID(c *gin.Context, entity domain.EntityType) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeNotFound(c, entity)
		return 0, false
	}
	return id, true
}

// bindPatch decodes a JSON object body into patch.
func bindPatch(c *gin.Context, patch any) bool {
	body, err := c.GetRawData()
	if err != nil || !bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		writeValidation(c)
		return false
	}
	if err := binding.JSON.BindBody(body, patch); err != nil {
		writeValidation(c)
		return false
	}
	return true
}
