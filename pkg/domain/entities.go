// Package domain defines the persistent entities, validation primitives and
// rule evaluation types shared by every missioncore store implementation.
package domain

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence tables.
const (
	// EntityPlanet identifies a planet record.
	EntityPlanet EntityType = "planet"
	// EntityScientist identifies a scientist record.
	EntityScientist EntityType = "scientist"
	// EntityMission identifies a mission record linking a scientist to a planet.
	EntityMission EntityType = "mission"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
)

// Planet is a mission destination. Planets are seeded rather than created over HTTP.
type Planet struct {
	ID                int64  `json:"id" yaml:"id"`
	Name              string `json:"name" yaml:"name"`
	DistanceFromEarth int64  `json:"distance_from_earth" yaml:"distance_from_earth"`
	NearestStar       string `json:"nearest_star" yaml:"nearest_star"`
}

// Scientist owns zero or more missions.
type Scientist struct {
	ID           int64  `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	FieldOfStudy string `json:"field_of_study" yaml:"field_of_study"`
}

// Mission assigns a scientist to a planet.
type Mission struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	ScientistID int64  `json:"scientist_id" yaml:"scientist_id"`
	PlanetID    int64  `json:"planet_id" yaml:"planet_id"`
}

// Change describes a mutation applied to an entity during a transaction.
// Before and After hold value copies of Planet, Scientist or Mission.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the change log.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID int64
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}
