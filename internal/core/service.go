package core

import (
	"context"
	"errors"

	"missioncore/internal/blob"
	"missioncore/internal/infra/persistence/memory"
	"missioncore/pkg/domain"
)

// ErrArchiveDisabled is returned by archive queries when no archiver is configured.
var ErrArchiveDisabled = errors.New("scientist archive not configured")

// Service exposes transactional CRUD operations over planets, scientists and
// missions, plus serialized reads for the HTTP surface.
type Service struct {
	store PersistentStore
	opts  serviceOptions
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Service{store: store, opts: options}
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine selects the default rules, as OpenPersistentStore does.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// run wraps an operation with tracing, metrics and auditing.
func (s *Service) run(ctx context.Context, op string, entity EntityType, action Action, fn func(context.Context) (int64, error)) error {
	started := s.opts.clock.Now()
	ctx, span := s.opts.tracer.Start(ctx, op)
	id, err := fn(ctx)
	span.End(err)
	duration := s.opts.clock.Now().Sub(started)
	s.opts.metrics.Observe(ctx, op, err == nil, duration)
	if action == "" {
		return err
	}
	entry := AuditEntry{
		Operation:  op,
		Entity:     entity,
		Action:     action,
		EntityID:   id,
		Status:     AuditStatusSuccess,
		Duration:   duration,
		OccurredAt: s.opts.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.opts.audit.Record(ctx, entry)
	return err
}

// View runs fn against a consistent snapshot.
func (s *Service) View(ctx context.Context, fn func(TransactionView) error) error {
	return s.store.View(ctx, fn)
}

// Planets -------------------------------------------------------------------

// CreatePlanet persists a new planet.
func (s *Service) CreatePlanet(ctx context.Context, planet Planet) (Planet, Result, error) {
	var (
		created Planet
		res     Result
	)
	err := s.run(ctx, "create_planet", EntityPlanet, ActionCreate, func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			created, err = tx.CreatePlanet(planet)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// DeletePlanet removes a planet that no mission references.
func (s *Service) DeletePlanet(ctx context.Context, id int64) (Result, error) {
	var res Result
	err := s.run(ctx, "delete_planet", EntityPlanet, ActionDelete, func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeletePlanet(id)
		})
		return id, err
	})
	return res, err
}

// Scientists ----------------------------------------------------------------

// CreateScientist persists a new scientist after field validation.
func (s *Service) CreateScientist(ctx context.Context, scientist Scientist) (Scientist, Result, error) {
	var (
		created Scientist
		res     Result
	)
	err := s.run(ctx, "create_scientist", EntityScientist, ActionCreate, func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			created, err = tx.CreateScientist(scientist)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdateScientist applies the supplied patch fields through the validating setters.
func (s *Service) UpdateScientist(ctx context.Context, id int64, patch ScientistPatch) (Scientist, Result, error) {
	var (
		updated Scientist
		res     Result
	)
	err := s.run(ctx, "update_scientist", EntityScientist, ActionUpdate, func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			updated, err = tx.UpdateScientist(id, patch.Apply)
			return err
		})
		return id, err
	})
	return updated, res, err
}

// DeleteScientist removes a scientist together with its missions. When an
// archiver is configured the pre-delete document is archived after commit;
// archive failures are logged and do not fail the delete.
func (s *Service) DeleteScientist(ctx context.Context, id int64) (Result, error) {
	var (
		res      Result
		snapshot Document
	)
	err := s.run(ctx, "delete_scientist", EntityScientist, ActionDelete, func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if s.opts.archive != nil {
				view := tx.Snapshot()
				if sc, ok := view.FindScientist(id); ok {
					snapshot = NewSerializer(view).Scientist(sc, Options{})
				}
			}
			return tx.DeleteScientist(id)
		})
		return id, err
	})
	if err == nil && snapshot != nil {
		s.archiveScientist(ctx, id, snapshot)
	}
	return res, err
}

func (s *Service) archiveScientist(ctx context.Context, id int64, doc Document) {
	info, err := s.opts.archive.ArchiveScientist(ctx, id, doc, s.opts.clock.Now())
	if err != nil {
		s.opts.logger.Error("archive scientist failed", "scientist_id", id, "error", err)
		return
	}
	s.opts.logger.Info("scientist archived", "scientist_id", id, "key", info.Key)
}

// ListScientistArchives lists archived scientist documents.
func (s *Service) ListScientistArchives(ctx context.Context) ([]blob.Info, error) {
	if s.opts.archive == nil {
		return nil, ErrArchiveDisabled
	}
	var infos []blob.Info
	err := s.run(ctx, "list_scientist_archives", EntityScientist, "", func(ctx context.Context) (int64, error) {
		var err error
		infos, err = s.opts.archive.ListScientistArchives(ctx)
		return 0, err
	})
	return infos, err
}

// Missions ------------------------------------------------------------------

// CreateMission persists a mission whose references resolve.
func (s *Service) CreateMission(ctx context.Context, mission Mission) (Mission, Result, error) {
	var (
		created Mission
		res     Result
	)
	err := s.run(ctx, "create_mission", EntityMission, ActionCreate, func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			created, err = tx.CreateMission(mission)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdateMission applies the supplied patch fields, resolving references in the transaction.
func (s *Service) UpdateMission(ctx context.Context, id int64, patch MissionPatch) (Mission, Result, error) {
	var (
		updated Mission
		res     Result
	)
	err := s.run(ctx, "update_mission", EntityMission, ActionUpdate, func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			updated, err = tx.UpdateMission(id, func(m *Mission) error {
				return patch.Apply(m, tx)
			})
			return err
		})
		return id, err
	})
	return updated, res, err
}

// DeleteMission removes a mission.
func (s *Service) DeleteMission(ctx context.Context, id int64) (Result, error) {
	var res Result
	err := s.run(ctx, "delete_mission", EntityMission, ActionDelete, func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteMission(id)
		})
		return id, err
	})
	return res, err
}

// Seeding -------------------------------------------------------------------

// SeedData is a batch of records loaded in one transaction. Missions may
// reference records created earlier in the same batch by their explicit ids.
type SeedData struct {
	Planets    []Planet    `yaml:"planets" json:"planets"`
	Scientists []Scientist `yaml:"scientists" json:"scientists"`
	Missions   []Mission   `yaml:"missions" json:"missions"`
}

// SeedCounts reports how many records a seed created or updated.
type SeedCounts struct {
	Planets        int
	PlanetsUpdated int
	Scientists     int
	Missions       int
}

// Seed writes every record in data atomically. Planets carrying the id of an
// existing planet overwrite it; everything else is created.
func (s *Service) Seed(ctx context.Context, data SeedData) (SeedCounts, Result, error) {
	var (
		counts SeedCounts
		res    Result
	)
	err := s.run(ctx, "seed", "", "", func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			counts = SeedCounts{}
			for _, p := range data.Planets {
				if _, exists := tx.FindPlanet(p.ID); p.ID > 0 && exists {
					patch := PlanetPatch{Name: &p.Name, DistanceFromEarth: &p.DistanceFromEarth, NearestStar: &p.NearestStar}
					if _, err := tx.UpdatePlanet(p.ID, patch.Apply); err != nil {
						return err
					}
					counts.PlanetsUpdated++
					continue
				}
				if _, err := tx.CreatePlanet(p); err != nil {
					return err
				}
				counts.Planets++
			}
			for _, sc := range data.Scientists {
				if _, err := tx.CreateScientist(sc); err != nil {
					return err
				}
				counts.Scientists++
			}
			for _, m := range data.Missions {
				if _, err := tx.CreateMission(m); err != nil {
					return err
				}
				counts.Missions++
			}
			return nil
		})
		return 0, err
	})
	if err != nil {
		return SeedCounts{}, res, err
	}
	s.opts.logger.Info("seed applied", "planets", counts.Planets, "planets_updated", counts.PlanetsUpdated, "scientists", counts.Scientists, "missions", counts.Missions)
	return counts, res, nil
}

// Serialized reads ----------------------------------------------------------

// PlanetDocuments serializes every planet.
func (s *Service) PlanetDocuments(ctx context.Context, opts Options) ([]Document, error) {
	var docs []Document
	err := s.read(ctx, "list_planets", func(view TransactionView) error {
		docs = NewSerializer(view).Planets(view.ListPlanets(), opts)
		return nil
	})
	return docs, err
}

// PlanetDocument serializes one planet.
func (s *Service) PlanetDocument(ctx context.Context, id int64, opts Options) (Document, error) {
	var doc Document
	err := s.read(ctx, "get_planet", func(view TransactionView) error {
		p, ok := view.FindPlanet(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityPlanet, ID: id}
		}
		doc = NewSerializer(view).Planet(p, opts)
		return nil
	})
	return doc, err
}

// ScientistDocuments serializes every scientist.
func (s *Service) ScientistDocuments(ctx context.Context, opts Options) ([]Document, error) {
	var docs []Document
	err := s.read(ctx, "list_scientists", func(view TransactionView) error {
		docs = NewSerializer(view).Scientists(view.ListScientists(), opts)
		return nil
	})
	return docs, err
}

// ScientistDocument serializes one scientist.
func (s *Service) ScientistDocument(ctx context.Context, id int64, opts Options) (Document, error) {
	var doc Document
	err := s.read(ctx, "get_scientist", func(view TransactionView) error {
		sc, ok := view.FindScientist(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityScientist, ID: id}
		}
		doc = NewSerializer(view).Scientist(sc, opts)
		return nil
	})
	return doc, err
}

// MissionDocuments serializes every mission.
func (s *Service) MissionDocuments(ctx context.Context, opts Options) ([]Document, error) {
	var docs []Document
	err := s.read(ctx, "list_missions", func(view TransactionView) error {
		docs = NewSerializer(view).Missions(view.ListMissions(), opts)
		return nil
	})
	return docs, err
}

// MissionDocument serializes one mission.
func (s *Service) MissionDocument(ctx context.Context, id int64, opts Options) (Document, error) {
	var doc Document
	err := s.read(ctx, "get_mission", func(view TransactionView) error {
		m, ok := view.FindMission(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityMission, ID: id}
		}
		doc = NewSerializer(view).Mission(m, opts)
		return nil
	})
	return doc, err
}

func (s *Service) read(ctx context.Context, op string, fn func(TransactionView) error) error {
	return s.run(ctx, op, "", "", func(ctx context.Context) (int64, error) {
		return 0, s.store.View(ctx, fn)
	})
}

