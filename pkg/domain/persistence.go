package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Nothing a transaction does is visible
// outside it until RunInTransaction returns without error.
type Transaction interface {
	Snapshot() TransactionView
	CreatePlanet(Planet) (Planet, error)
	UpdatePlanet(id int64, mutator func(*Planet) error) (Planet, error)
	DeletePlanet(id int64) error
	CreateScientist(Scientist) (Scientist, error)
	UpdateScientist(id int64, mutator func(*Scientist) error) (Scientist, error)
	// DeleteScientist removes the scientist and every mission referencing it.
	DeleteScientist(id int64) error
	CreateMission(Mission) (Mission, error)
	UpdateMission(id int64, mutator func(*Mission) error) (Mission, error)
	DeleteMission(id int64) error
	FindPlanet(id int64) (Planet, bool)
	FindScientist(id int64) (Scientist, bool)
	FindMission(id int64) (Mission, bool)
}

// TransactionView provides read-only access to snapshot data. List methods
// return records in storage order (ascending id).
type TransactionView interface {
	RuleView
	ListPlanets() []Planet
	ListScientists() []Scientist
	FindMission(id int64) (Mission, bool)
	MissionsForPlanet(planetID int64) []Mission
	MissionsForScientist(scientistID int64) []Mission
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetPlanet(id int64) (Planet, bool)
	ListPlanets() []Planet
	GetScientist(id int64) (Scientist, bool)
	ListScientists() []Scientist
	GetMission(id int64) (Mission, bool)
	ListMissions() []Mission
	Close() error
}
