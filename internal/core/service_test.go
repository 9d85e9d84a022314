package core

import (
	"context"
	"errors"
	"testing"

	"missioncore/internal/infra/persistence/memory"
	"missioncore/pkg/domain"
)

func ptr[T any](v T) *T { return &v }

func TestServiceCreateScientistValidation(t *testing.T) {
	svc := NewInMemoryService(nil)
	ctx := context.Background()
	for _, sc := range []Scientist{{Name: "", FieldOfStudy: "x"}, {Name: "x", FieldOfStudy: ""}} {
		if _, _, err := svc.CreateScientist(ctx, sc); !domain.IsValidation(err) {
			t.Fatalf("expected validation error for %#v, got %v", sc, err)
		}
	}
	if got := len(svc.Store().ListScientists()); got != 0 {
		t.Fatalf("expected no scientists persisted, got %d", got)
	}
	created, _, err := svc.CreateScientist(ctx, Scientist{Name: "Mel", FieldOfStudy: "Astro"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("expected id 1, got %d", created.ID)
	}
}

func TestServiceCreateMissionRequiresReferences(t *testing.T) {
	f := newFixture(t)
	cases := []Mission{
		{Name: "", ScientistID: f.mel.ID, PlanetID: f.mars.ID},
		{Name: "X", ScientistID: 99, PlanetID: f.mars.ID},
		{Name: "X", ScientistID: f.mel.ID, PlanetID: 99},
	}
	for _, m := range cases {
		if _, _, err := f.svc.CreateMission(f.ctx, m); !domain.IsValidation(err) {
			t.Fatalf("expected validation error for %#v, got %v", m, err)
		}
	}
	if got := len(f.svc.Store().ListMissions()); got != 3 {
		t.Fatalf("expected 3 missions, got %d", got)
	}
}

func TestServiceUpdateScientistPatch(t *testing.T) {
	f := newFixture(t)
	updated, _, err := f.svc.UpdateScientist(f.ctx, f.mel.ID, ScientistPatch{FieldOfStudy: ptr("Planetology")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Mel" || updated.FieldOfStudy != "Planetology" {
		t.Fatalf("unexpected scientist: %#v", updated)
	}
	if _, _, err := f.svc.UpdateScientist(f.ctx, f.mel.ID, ScientistPatch{Name: ptr("")}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	stored, _ := f.svc.Store().GetScientist(f.mel.ID)
	if stored.Name != "Mel" || stored.FieldOfStudy != "Planetology" {
		t.Fatalf("failed update must not persist: %#v", stored)
	}
	if _, _, err := f.svc.UpdateScientist(f.ctx, 404, ScientistPatch{}); !domain.IsNotFound(err, EntityScientist) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceUpdateMissionPatch(t *testing.T) {
	f := newFixture(t)
	updated, _, err := f.svc.UpdateMission(f.ctx, f.probe.ID, MissionPatch{Name: ptr("Probe II"), PlanetID: ptr(f.venus.ID)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Probe II" || updated.PlanetID != f.venus.ID || updated.ScientistID != f.mel.ID {
		t.Fatalf("unexpected mission: %#v", updated)
	}
	if _, _, err := f.svc.UpdateMission(f.ctx, f.probe.ID, MissionPatch{ScientistID: ptr(int64(77))}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, _, err := f.svc.UpdateMission(f.ctx, 404, MissionPatch{}); !domain.IsNotFound(err, EntityMission) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceDeleteScientistCascades(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.DeleteScientist(f.ctx, f.mel.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	missions := f.svc.Store().ListMissions()
	if len(missions) != 1 || missions[0].ID != f.orbiter.ID {
		t.Fatalf("expected only orbiter to remain, got %#v", missions)
	}
	if _, err := f.svc.ScientistDocument(f.ctx, f.mel.ID, Options{}); !domain.IsNotFound(err, EntityScientist) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.DeleteScientist(f.ctx, f.mel.ID); !domain.IsNotFound(err, EntityScientist) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestServiceDeletePlanetBlockedByMissions(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.DeletePlanet(f.ctx, f.venus.ID); !domain.IsReference(err) {
		t.Fatalf("expected reference error, got %v", err)
	}
	if _, err := f.svc.DeleteMission(f.ctx, f.lander.ID); err != nil {
		t.Fatalf("delete mission: %v", err)
	}
	if _, err := f.svc.DeletePlanet(f.ctx, f.venus.ID); err != nil {
		t.Fatalf("delete planet: %v", err)
	}
	if _, err := f.svc.PlanetDocument(f.ctx, f.venus.ID, Options{}); !domain.IsNotFound(err, EntityPlanet) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceDocumentsNotFound(t *testing.T) {
	svc := NewInMemoryService(nil)
	ctx := context.Background()
	if _, err := svc.MissionDocument(ctx, 1, Options{}); !domain.IsNotFound(err, EntityMission) {
		t.Fatalf("expected mission not found, got %v", err)
	}
	docs, err := svc.MissionDocuments(ctx, Options{})
	if err != nil || len(docs) != 0 {
		t.Fatalf("expected empty list, got %v %v", docs, err)
	}
}

func TestServiceSeedIsAtomic(t *testing.T) {
	svc := NewInMemoryService(nil)
	ctx := context.Background()
	data := SeedData{
		Planets:    []Planet{{ID: 10, Name: "Mars"}},
		Scientists: []Scientist{{ID: 20, Name: "Mel", FieldOfStudy: "Astro"}},
		Missions:   []Mission{{Name: "Probe", ScientistID: 20, PlanetID: 10}},
	}
	counts, _, err := svc.Seed(ctx, data)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if counts != (SeedCounts{Planets: 1, Scientists: 1, Missions: 1}) {
		t.Fatalf("unexpected counts: %#v", counts)
	}
	bad := SeedData{
		Planets:  []Planet{{Name: "Venus"}},
		Missions: []Mission{{Name: "Ghost", ScientistID: 404, PlanetID: 10}},
	}
	if _, _, err := svc.Seed(ctx, bad); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := len(svc.Store().ListPlanets()); got != 1 {
		t.Fatalf("failed seed must not persist planets, got %d", got)
	}
}

func TestServiceSeedOverwritesPlanetsByID(t *testing.T) {
	f := newFixture(t)
	data := SeedData{Planets: []Planet{
		{ID: f.mars.ID, Name: "Mars", DistanceFromEarth: 225, NearestStar: "Sol"},
		{Name: "Ceres", DistanceFromEarth: 264, NearestStar: "Sol"},
	}}
	counts, _, err := f.svc.Seed(f.ctx, data)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if counts != (SeedCounts{Planets: 1, PlanetsUpdated: 1}) {
		t.Fatalf("unexpected counts: %#v", counts)
	}
	got, ok := f.svc.Store().GetPlanet(f.mars.ID)
	if !ok || got.DistanceFromEarth != 225 || got.NearestStar != "Sol" {
		t.Fatalf("expected planet overwritten, got %#v", got)
	}
	if missions := len(f.svc.Store().ListMissions()); missions != 3 {
		t.Fatalf("overwrite must keep missions, got %d", missions)
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block_all" }

func (blockingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block_all", Severity: domain.SeverityBlock}}}, nil
}

func TestServiceSurfacesRuleViolations(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(blockingRule{})
	svc := NewService(memory.NewStore(engine))
	_, res, err := svc.CreateScientist(context.Background(), Scientist{Name: "Mel", FieldOfStudy: "Astro"})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result, got %#v", res)
	}
}

func TestNewInMemoryServiceDefaultsRules(t *testing.T) {
	svc := NewInMemoryService(nil)
	ms, ok := svc.Store().(interface{ RulesEngine() *RulesEngine })
	if !ok {
		t.Fatalf("expected in-memory store to expose its rules engine")
	}
	var names []string
	for _, rule := range ms.RulesEngine().Rules() {
		names = append(names, rule.Name())
	}
	if len(names) != 1 || names[0] != MissionReferencesRuleName {
		t.Fatalf("expected default rules, got %v", names)
	}
}

func TestServiceListArchivesWithoutArchiver(t *testing.T) {
	svc := NewInMemoryService(nil)
	if _, err := svc.ListScientistArchives(context.Background()); !errors.Is(err, ErrArchiveDisabled) {
		t.Fatalf("expected ErrArchiveDisabled, got %v", err)
	}
}
