package domain

import (
	"errors"
	"fmt"
)

// Validation messages surfaced by the field setters.
const (
	MsgScientistName     = "name must be a non-empty string"
	MsgScientistField    = "field_of_study must be a non-empty string"
	MsgMissionName       = "mission must have a name"
	MsgMissionScientist  = "must reference a valid scientist"
	MsgMissionPlanet     = "must reference a valid planet"
	msgRuleViolation     = "transaction blocked by rules"
	msgReferenceConflict = "still referenced by"
)

// ValidationError reports a field invariant or reference violation. The write
// that produced it is never persisted.
type ValidationError struct {
	Entity  EntityType
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Entity, e.Field, e.Message)
}

// NotFoundError is returned when an entity id does not resolve.
type NotFoundError struct {
	Entity EntityType
	ID     int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ReferenceError is returned when a delete is blocked by dependent records.
type ReferenceError struct {
	Entity      EntityType
	ID          int64
	Dependent   EntityType
	DependentID int64
}

func (e ReferenceError) Error() string {
	return fmt.Sprintf("%s %d %s %s %d", e.Entity, e.ID, msgReferenceConflict, e.Dependent, e.DependentID)
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return msgRuleViolation
}

// IsValidation reports whether err is a ValidationError or a blocking rule outcome.
func IsValidation(err error) bool {
	var verr ValidationError
	if errors.As(err, &verr) {
		return true
	}
	var rerr RuleViolationError
	return errors.As(err, &rerr)
}

// IsNotFound reports whether err wraps a NotFoundError, optionally for a specific entity.
func IsNotFound(err error, entity EntityType) bool {
	var nerr NotFoundError
	if !errors.As(err, &nerr) {
		return false
	}
	return entity == "" || nerr.Entity == entity
}

// IsReference reports whether err wraps a ReferenceError.
func IsReference(err error) bool {
	var rerr ReferenceError
	return errors.As(err, &rerr)
}
