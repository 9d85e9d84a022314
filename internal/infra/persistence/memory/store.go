// Package memory provides an in-memory implementation of the core persistence
// store used for tests, ephemeral environments and as the transactional engine
// underneath the SQL-backed stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"missioncore/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Planet aliases domain.Planet for in-memory persistence operations.
	Planet = domain.Planet
	// Scientist aliases domain.Scientist.
	Scientist = domain.Scientist
	// Mission aliases domain.Mission.
	Mission = domain.Mission
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// CommitHook runs after rules pass and before the transactional state is
// swapped in. A non-nil error discards the transaction.
type CommitHook func(ctx context.Context, changes []Change) error

// Sequences holds the last id handed out per entity type.
type Sequences struct {
	Planet    int64 `json:"planet"`
	Scientist int64 `json:"scientist"`
	Mission   int64 `json:"mission"`
}

type memoryState struct {
	planets    map[int64]Planet
	scientists map[int64]Scientist
	missions   map[int64]Mission
	seq        Sequences
}

func newMemoryState() memoryState {
	return memoryState{
		planets:    make(map[int64]Planet),
		scientists: make(map[int64]Scientist),
		missions:   make(map[int64]Mission),
	}
}

// Entities are flat value types, so a map copy is a deep copy.
func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.planets {
		cloned.planets[k] = v
	}
	for k, v := range s.scientists {
		cloned.scientists[k] = v
	}
	for k, v := range s.missions {
		cloned.missions[k] = v
	}
	cloned.seq = s.seq
	return cloned
}

func sortedValues[T any](m map[int64]T) []T {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

func (s *memoryState) missionsWhere(match func(Mission) bool) []Mission {
	var out []Mission
	for _, m := range sortedValues(s.missions) {
		if match(m) {
			out = append(out, m)
		}
	}
	return out
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	hook   CommitHook
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
	}
}

// SetCommitHook installs the durable-write hook used by SQL-backed stores.
func (s *Store) SetCommitHook(hook CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Close implements domain.PersistentStore; the memory store holds no resources.
func (s *Store) Close() error { return nil }

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListPlanets returns all planets within the snapshot.
func (v transactionView) ListPlanets() []Planet { return sortedValues(v.state.planets) }

// ListScientists returns all scientists within the snapshot.
func (v transactionView) ListScientists() []Scientist { return sortedValues(v.state.scientists) }

// ListMissions returns all missions within the snapshot.
func (v transactionView) ListMissions() []Mission { return sortedValues(v.state.missions) }

// FindPlanet retrieves a planet by ID from the snapshot.
func (v transactionView) FindPlanet(id int64) (Planet, bool) {
	p, ok := v.state.planets[id]
	return p, ok
}

// FindScientist retrieves a scientist by ID from the snapshot.
func (v transactionView) FindScientist(id int64) (Scientist, bool) {
	s, ok := v.state.scientists[id]
	return s, ok
}

// FindMission retrieves a mission by ID from the snapshot.
func (v transactionView) FindMission(id int64) (Mission, bool) {
	m, ok := v.state.missions[id]
	return m, ok
}

// MissionsForPlanet lists missions targeting the planet.
func (v transactionView) MissionsForPlanet(planetID int64) []Mission {
	return v.state.missionsWhere(func(m Mission) bool { return m.PlanetID == planetID })
}

// MissionsForScientist lists missions assigned to the scientist.
func (v transactionView) MissionsForScientist(scientistID int64) []Mission {
	return v.state.missionsWhere(func(m Mission) bool { return m.ScientistID == scientistID })
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces committed state only when fn, the rules engine and the
// commit hook all succeed.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.hook != nil && len(tx.changes) > 0 {
		if err := s.hook(ctx, tx.changes); err != nil {
			return result, err
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindPlanet exposes planet lookup within the transaction scope.
func (tx *transaction) FindPlanet(id int64) (Planet, bool) {
	p, ok := tx.state.planets[id]
	return p, ok
}

// FindScientist exposes scientist lookup within the transaction scope.
func (tx *transaction) FindScientist(id int64) (Scientist, bool) {
	s, ok := tx.state.scientists[id]
	return s, ok
}

// FindMission exposes mission lookup within the transaction scope.
func (tx *transaction) FindMission(id int64) (Mission, bool) {
	m, ok := tx.state.missions[id]
	return m, ok
}

// assignID honours a caller-supplied id (used by seeding and snapshot import)
// and otherwise draws the next value from the sequence.
func assignID(requested int64, seq *int64, exists func(int64) bool, entity domain.EntityType) (int64, error) {
	if requested == 0 {
		*seq++
		return *seq, nil
	}
	if requested < 0 {
		return 0, fmt.Errorf("%s id %d must be positive", entity, requested)
	}
	if exists(requested) {
		return 0, fmt.Errorf("%s %d already exists", entity, requested)
	}
	if requested > *seq {
		*seq = requested
	}
	return requested, nil
}

// CreatePlanet stores a new planet.
func (tx *transaction) CreatePlanet(p Planet) (Planet, error) {
	id, err := assignID(p.ID, &tx.state.seq.Planet, func(id int64) bool {
		_, ok := tx.state.planets[id]
		return ok
	}, domain.EntityPlanet)
	if err != nil {
		return Planet{}, err
	}
	p.ID = id
	tx.state.planets[p.ID] = p
	tx.recordChange(Change{Entity: domain.EntityPlanet, Action: domain.ActionCreate, After: p})
	return p, nil
}

// UpdatePlanet mutates an existing planet.
func (tx *transaction) UpdatePlanet(id int64, mutator func(*Planet) error) (Planet, error) {
	current, ok := tx.state.planets[id]
	if !ok {
		return Planet{}, domain.NotFoundError{Entity: domain.EntityPlanet, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Planet{}, err
	}
	current.ID = id
	tx.state.planets[id] = current
	tx.recordChange(Change{Entity: domain.EntityPlanet, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeletePlanet removes a planet that no mission references.
func (tx *transaction) DeletePlanet(id int64) error {
	current, ok := tx.state.planets[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityPlanet, ID: id}
	}
	for _, m := range sortedValues(tx.state.missions) {
		if m.PlanetID == id {
			return domain.ReferenceError{Entity: domain.EntityPlanet, ID: id, Dependent: domain.EntityMission, DependentID: m.ID}
		}
	}
	delete(tx.state.planets, id)
	tx.recordChange(Change{Entity: domain.EntityPlanet, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateScientist stores a new scientist after validating its fields.
func (tx *transaction) CreateScientist(s Scientist) (Scientist, error) {
	if err := s.Validate(); err != nil {
		return Scientist{}, err
	}
	id, err := assignID(s.ID, &tx.state.seq.Scientist, func(id int64) bool {
		_, ok := tx.state.scientists[id]
		return ok
	}, domain.EntityScientist)
	if err != nil {
		return Scientist{}, err
	}
	s.ID = id
	tx.state.scientists[s.ID] = s
	tx.recordChange(Change{Entity: domain.EntityScientist, Action: domain.ActionCreate, After: s})
	return s, nil
}

// UpdateScientist mutates an existing scientist and re-validates the result.
func (tx *transaction) UpdateScientist(id int64, mutator func(*Scientist) error) (Scientist, error) {
	current, ok := tx.state.scientists[id]
	if !ok {
		return Scientist{}, domain.NotFoundError{Entity: domain.EntityScientist, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Scientist{}, err
	}
	if err := current.Validate(); err != nil {
		return Scientist{}, err
	}
	current.ID = id
	tx.state.scientists[id] = current
	tx.recordChange(Change{Entity: domain.EntityScientist, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteScientist removes the scientist after deleting every mission that references it.
func (tx *transaction) DeleteScientist(id int64) error {
	current, ok := tx.state.scientists[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityScientist, ID: id}
	}
	for _, m := range sortedValues(tx.state.missions) {
		if m.ScientistID != id {
			continue
		}
		if err := tx.DeleteMission(m.ID); err != nil {
			return err
		}
	}
	delete(tx.state.scientists, id)
	tx.recordChange(Change{Entity: domain.EntityScientist, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateMission stores a mission whose references resolve within the transaction.
func (tx *transaction) CreateMission(m Mission) (Mission, error) {
	if err := m.Validate(tx); err != nil {
		return Mission{}, err
	}
	id, err := assignID(m.ID, &tx.state.seq.Mission, func(id int64) bool {
		_, ok := tx.state.missions[id]
		return ok
	}, domain.EntityMission)
	if err != nil {
		return Mission{}, err
	}
	m.ID = id
	tx.state.missions[m.ID] = m
	tx.recordChange(Change{Entity: domain.EntityMission, Action: domain.ActionCreate, After: m})
	return m, nil
}

// UpdateMission mutates an existing mission and re-validates the result.
func (tx *transaction) UpdateMission(id int64, mutator func(*Mission) error) (Mission, error) {
	current, ok := tx.state.missions[id]
	if !ok {
		return Mission{}, domain.NotFoundError{Entity: domain.EntityMission, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Mission{}, err
	}
	if err := current.Validate(tx); err != nil {
		return Mission{}, err
	}
	current.ID = id
	tx.state.missions[id] = current
	tx.recordChange(Change{Entity: domain.EntityMission, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteMission removes a mission.
func (tx *transaction) DeleteMission(id int64) error {
	current, ok := tx.state.missions[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityMission, ID: id}
	}
	delete(tx.state.missions, id)
	tx.recordChange(Change{Entity: domain.EntityMission, Action: domain.ActionDelete, Before: current})
	return nil
}

// Read helpers ---------------------------------------------------------------

// GetPlanet retrieves a planet by ID from committed state.
func (s *Store) GetPlanet(id int64) (Planet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.planets[id]
	return p, ok
}

// ListPlanets returns all planets from committed state.
func (s *Store) ListPlanets() []Planet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.state.planets)
}

// GetScientist retrieves a scientist by ID.
func (s *Store) GetScientist(id int64) (Scientist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.state.scientists[id]
	return sc, ok
}

// ListScientists returns all scientists.
func (s *Store) ListScientists() []Scientist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.state.scientists)
}

// GetMission retrieves a mission by ID.
func (s *Store) GetMission(id int64) (Mission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.missions[id]
	return m, ok
}

// ListMissions returns all missions.
func (s *Store) ListMissions() []Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.state.missions)
}

// Snapshot captures a point-in-time copy of every table and the id sequences.
type Snapshot struct {
	Planets    []Planet    `json:"planets"`
	Scientists []Scientist `json:"scientists"`
	Missions   []Mission   `json:"missions"`
	Sequences  Sequences   `json:"sequences"`
}

// ExportState returns a snapshot of committed state ordered by id.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Planets:    sortedValues(s.state.planets),
		Scientists: sortedValues(s.state.scientists),
		Missions:   sortedValues(s.state.missions),
		Sequences:  s.state.seq,
	}
}

// ImportState replaces committed state with the snapshot. Sequences resume
// after the larger of the recorded sequence and the highest imported id.
func (s *Store) ImportState(snapshot Snapshot) {
	state := newMemoryState()
	state.seq = snapshot.Sequences
	for _, p := range snapshot.Planets {
		state.planets[p.ID] = p
		state.seq.Planet = max(state.seq.Planet, p.ID)
	}
	for _, sc := range snapshot.Scientists {
		state.scientists[sc.ID] = sc
		state.seq.Scientist = max(state.seq.Scientist, sc.ID)
	}
	for _, m := range snapshot.Missions {
		state.missions[m.ID] = m
		state.seq.Mission = max(state.seq.Mission, m.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
