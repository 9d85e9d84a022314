package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"missioncore/pkg/domain"
)

const (
	msgValidation = "validation errors"
	msgInternal   = "internal server error"
)

// fail maps a service error onto the response contract. Errors with no
// domain meaning are logged and answered with a generic 500.
func (h *Handler) fail(c *gin.Context, entity domain.EntityType, err error) {
	var (
		notFound  domain.NotFoundError
		reference domain.ReferenceError
	)
	switch {
	case errors.As(err, &notFound):
		writeNotFound(c, notFound.Entity)
	case domain.IsValidation(err):
		writeValidation(c)
	case errors.As(err, &reference):
		c.JSON(http.StatusConflict, gin.H{"error": title(reference.Entity) + " has " + string(reference.Dependent) + "s"})
	default:
		_ = c.Error(err)
		h.Log.WithError(err).WithFields(logrus.Fields{
			"entity": entity,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"errors": []string{msgInternal}})
	}
}

func writeValidation(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": []string{msgValidation}})
}

func writeNotFound(c *gin.Context, entity domain.EntityType) {
	c.JSON(http.StatusNotFound, gin.H{"error": title(entity) + " not found"})
}

func title(entity domain.EntityType) string {
	s := string(entity)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
