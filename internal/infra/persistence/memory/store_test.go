package memory

import (
	"context"
	"errors"
	"testing"

	"missioncore/pkg/domain"
)

func seedStore(t *testing.T) (*Store, domain.Planet, domain.Scientist, domain.Mission) {
	t.Helper()
	store := NewStore(nil)
	var (
		planet    domain.Planet
		scientist domain.Scientist
		mission   domain.Mission
	)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		if planet, err = tx.CreatePlanet(domain.NewPlanet("Mars", 140, "Sun")); err != nil {
			return err
		}
		if scientist, err = tx.CreateScientist(domain.Scientist{Name: "Mel", FieldOfStudy: "Astro"}); err != nil {
			return err
		}
		mission, err = tx.CreateMission(domain.Mission{Name: "Probe", ScientistID: scientist.ID, PlanetID: planet.ID})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store, planet, scientist, mission
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindPlanet(1); ok {
			t.Fatalf("expected missing planet lookup")
		}
		created, err := tx.CreatePlanet(domain.NewPlanet("Venus", 50, "Sun"))
		if err != nil {
			return err
		}
		if created.ID != 1 {
			t.Fatalf("expected id 1, got %d", created.ID)
		}
		if len(tx.Snapshot().ListPlanets()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(store.ListPlanets()) != 1 {
		t.Fatalf("expected persisted planet")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListPlanets()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.ListPlanets()) != 1 {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStoreIDsAreNeverReused(t *testing.T) {
	store, _, scientist, _ := seedStore(t)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteScientist(scientist.ID)
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var next domain.Scientist
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		next, err = tx.CreateScientist(domain.Scientist{Name: "Ada", FieldOfStudy: "Math"})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if next.ID != scientist.ID+1 {
		t.Fatalf("expected id %d, got %d", scientist.ID+1, next.ID)
	}

	store.ImportState(Snapshot{Planets: []domain.Planet{{ID: 7, Name: "X"}}})
	var planet domain.Planet
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		planet, err = tx.CreatePlanet(domain.Planet{Name: "Y"})
		return err
	}); err != nil {
		t.Fatalf("create planet: %v", err)
	}
	if planet.ID != 8 {
		t.Fatalf("expected sequence to resume after import, got %d", planet.ID)
	}
}

func TestImportStateHonorsRecordedSequences(t *testing.T) {
	store := NewStore(nil)
	store.ImportState(Snapshot{
		Scientists: []domain.Scientist{{ID: 1, Name: "Mel", FieldOfStudy: "Astro"}},
		Sequences:  Sequences{Scientist: 4, Planet: 2},
	})
	if got := store.ExportState().Sequences; got.Scientist != 4 || got.Planet != 2 || got.Mission != 0 {
		t.Fatalf("unexpected exported sequences %+v", got)
	}
	var next domain.Scientist
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		next, err = tx.CreateScientist(domain.Scientist{Name: "Ada", FieldOfStudy: "Math"})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if next.ID != 5 {
		t.Fatalf("expected id 5 after recorded sequence 4, got %d", next.ID)
	}
}

func TestStoreExplicitIDs(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreatePlanet(domain.Planet{ID: 5, Name: "Five"}); err != nil {
			return err
		}
		if _, err := tx.CreatePlanet(domain.Planet{ID: 5, Name: "Dup"}); err == nil {
			t.Fatalf("expected duplicate id error")
		}
		if _, err := tx.CreatePlanet(domain.Planet{ID: -1, Name: "Neg"}); err == nil {
			t.Fatalf("expected negative id error")
		}
		next, err := tx.CreatePlanet(domain.Planet{Name: "Six"})
		if err != nil {
			return err
		}
		if next.ID != 6 {
			t.Fatalf("expected id 6, got %d", next.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	res, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreatePlanet(domain.Planet{Name: "Fail"})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	if len(store.ListPlanets()) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}}, nil
}

func TestStoreFailedTransactionDiscardsChanges(t *testing.T) {
	store, _, _, _ := seedStore(t)
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreatePlanet(domain.Planet{Name: "Ghost"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(store.ListPlanets()) != 1 {
		t.Fatalf("expected rollback, got %+v", store.ListPlanets())
	}
}

func TestStoreCommitHook(t *testing.T) {
	store, _, _, _ := seedStore(t)
	var seen []domain.Change
	store.SetCommitHook(func(_ context.Context, changes []domain.Change) error {
		seen = append(seen, changes...)
		return nil
	})
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreatePlanet(domain.Planet{Name: "Hooked"})
		return err
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if len(seen) != 1 || seen[0].Action != domain.ActionCreate || seen[0].Entity != domain.EntityPlanet {
		t.Fatalf("unexpected hook changes: %+v", seen)
	}

	hookErr := errors.New("disk full")
	store.SetCommitHook(func(context.Context, []domain.Change) error { return hookErr })
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreatePlanet(domain.Planet{Name: "Lost"})
		return err
	}); !errors.Is(err, hookErr) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if len(store.ListPlanets()) != 2 {
		t.Fatalf("hook failure must discard state")
	}

	calls := 0
	store.SetCommitHook(func(context.Context, []domain.Change) error { calls++; return nil })
	if _, err := store.RunInTransaction(ctx, func(domain.Transaction) error { return nil }); err != nil {
		t.Fatalf("empty transaction: %v", err)
	}
	if calls != 0 {
		t.Fatalf("hook should not run without changes")
	}
}

func TestScientistValidationInTransaction(t *testing.T) {
	store, _, scientist, _ := seedStore(t)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateScientist(domain.Scientist{Name: "", FieldOfStudy: "x"})
		return err
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateScientist(scientist.ID, func(s *domain.Scientist) error {
			s.FieldOfStudy = ""
			return nil
		})
		return err
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error on update, got %v", err)
	}
	current, _ := store.GetScientist(scientist.ID)
	if current.FieldOfStudy != "Astro" {
		t.Fatalf("scientist should be unchanged: %+v", current)
	}
}

func TestMissionReferencesValidatedAgainstTransaction(t *testing.T) {
	store := NewStore(nil)
	var mission domain.Mission
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateMission(domain.Mission{Name: "Orphan", ScientistID: 1, PlanetID: 1}); !domain.IsValidation(err) {
			t.Fatalf("expected validation error for orphan mission, got %v", err)
		}
		p, err := tx.CreatePlanet(domain.Planet{Name: "Moon"})
		if err != nil {
			return err
		}
		s, err := tx.CreateScientist(domain.Scientist{Name: "Neil", FieldOfStudy: "Flight"})
		if err != nil {
			return err
		}
		mission, err = tx.CreateMission(domain.Mission{Name: "Apollo", ScientistID: s.ID, PlanetID: p.ID})
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if _, ok := store.GetMission(mission.ID); !ok {
		t.Fatalf("expected mission to be committed")
	}
}

func TestUpdateMission(t *testing.T) {
	store, planet, scientist, mission := seedStore(t)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateMission(mission.ID, func(m *domain.Mission) error {
			m.PlanetID = 99
			return nil
		})
		return err
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var updated domain.Mission
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateMission(mission.ID, func(m *domain.Mission) error {
			m.ID = 42
			return m.SetName("Rover")
		})
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != mission.ID || updated.Name != "Rover" || updated.PlanetID != planet.ID || updated.ScientistID != scientist.ID {
		t.Fatalf("unexpected update result: %+v", updated)
	}
}

func TestMissingEntities(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, updatePlanetErr := tx.UpdatePlanet(1, func(*domain.Planet) error { return nil })
		_, updateScientistErr := tx.UpdateScientist(1, func(*domain.Scientist) error { return nil })
		_, updateMissionErr := tx.UpdateMission(1, func(*domain.Mission) error { return nil })
		checks := map[domain.EntityType][]error{
			domain.EntityPlanet:    {tx.DeletePlanet(1), updatePlanetErr},
			domain.EntityScientist: {tx.DeleteScientist(1), updateScientistErr},
			domain.EntityMission:   {tx.DeleteMission(1), updateMissionErr},
		}
		for entity, errs := range checks {
			for _, err := range errs {
				if !domain.IsNotFound(err, entity) {
					t.Fatalf("expected %s not found, got %v", entity, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestDeleteScientistCascadesMissions(t *testing.T) {
	store, planet, scientist, mission := seedStore(t)
	ctx := context.Background()
	var changes []domain.Change
	store.SetCommitHook(func(_ context.Context, c []domain.Change) error {
		changes = c
		return nil
	})
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteScientist(scientist.ID)
	}); err != nil {
		t.Fatalf("delete scientist: %v", err)
	}
	if _, ok := store.GetMission(mission.ID); ok {
		t.Fatalf("expected mission to be removed")
	}
	if _, ok := store.GetPlanet(planet.ID); !ok {
		t.Fatalf("planet must survive scientist delete")
	}
	if len(changes) != 2 || changes[0].Entity != domain.EntityMission || changes[1].Entity != domain.EntityScientist {
		t.Fatalf("expected mission delete before scientist delete, got %+v", changes)
	}
}

func TestDeletePlanetBlockedByMissions(t *testing.T) {
	store, planet, _, mission := seedStore(t)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeletePlanet(planet.ID)
	})
	var ref domain.ReferenceError
	if !errors.As(err, &ref) || ref.DependentID != mission.ID {
		t.Fatalf("expected reference error, got %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := tx.DeleteMission(mission.ID); err != nil {
			return err
		}
		return tx.DeletePlanet(planet.ID)
	}); err != nil {
		t.Fatalf("delete after mission removal: %v", err)
	}
	if len(store.ListPlanets()) != 0 {
		t.Fatalf("expected planet removed")
	}
}

func TestViewAndRelationships(t *testing.T) {
	store, planet, scientist, mission := seedStore(t)
	err := store.View(context.Background(), func(view domain.TransactionView) error {
		if got := view.MissionsForPlanet(planet.ID); len(got) != 1 || got[0].ID != mission.ID {
			t.Fatalf("unexpected planet missions: %+v", got)
		}
		if got := view.MissionsForScientist(scientist.ID); len(got) != 1 {
			t.Fatalf("unexpected scientist missions: %+v", got)
		}
		if got := view.MissionsForScientist(scientist.ID + 1); len(got) != 0 {
			t.Fatalf("expected no missions, got %+v", got)
		}
		if _, ok := view.FindMission(mission.ID); !ok {
			t.Fatalf("expected mission in view")
		}
		if len(view.ListScientists()) != 1 || len(view.ListMissions()) != 1 {
			t.Fatalf("unexpected view contents")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(store.ListScientists()) != 1 || len(store.ListMissions()) != 1 {
		t.Fatalf("unexpected list results")
	}
}

func TestListsAreOrderedByID(t *testing.T) {
	store := NewStore(nil)
	store.ImportState(Snapshot{Planets: []domain.Planet{{ID: 3, Name: "C"}, {ID: 1, Name: "A"}, {ID: 2, Name: "B"}}})
	planets := store.ListPlanets()
	for i, p := range planets {
		if p.ID != int64(i+1) {
			t.Fatalf("expected ascending ids, got %+v", planets)
		}
	}
}
