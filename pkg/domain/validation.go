package domain

// ReferenceResolver resolves the foreign keys a mission carries. Transaction
// views satisfy it so references are checked against uncommitted state.
type ReferenceResolver interface {
	FindScientist(id int64) (Scientist, bool)
	FindPlanet(id int64) (Planet, bool)
}

func nonEmpty(value string) bool {
	return len(value) > 0
}

// NewPlanet constructs a planet. Planet fields carry no invariants.
func NewPlanet(name string, distanceFromEarth int64, nearestStar string) Planet {
	return Planet{Name: name, DistanceFromEarth: distanceFromEarth, NearestStar: nearestStar}
}

// NewScientist constructs a scientist, applying each field through its setter.
func NewScientist(name, fieldOfStudy string) (Scientist, error) {
	var s Scientist
	if err := s.SetName(name); err != nil {
		return Scientist{}, err
	}
	if err := s.SetFieldOfStudy(fieldOfStudy); err != nil {
		return Scientist{}, err
	}
	return s, nil
}

// SetName assigns the scientist name. The receiver is unchanged on error.
func (s *Scientist) SetName(name string) error {
	if !nonEmpty(name) {
		return ValidationError{Entity: EntityScientist, Field: "name", Message: MsgScientistName}
	}
	s.Name = name
	return nil
}

// SetFieldOfStudy assigns the field of study. The receiver is unchanged on error.
func (s *Scientist) SetFieldOfStudy(fieldOfStudy string) error {
	if !nonEmpty(fieldOfStudy) {
		return ValidationError{Entity: EntityScientist, Field: "field_of_study", Message: MsgScientistField}
	}
	s.FieldOfStudy = fieldOfStudy
	return nil
}

// Validate re-checks every scientist field in declaration order.
func (s Scientist) Validate() error {
	probe := Scientist{}
	if err := probe.SetName(s.Name); err != nil {
		return err
	}
	return probe.SetFieldOfStudy(s.FieldOfStudy)
}

// NewMission constructs a mission whose references are resolved through refs.
func NewMission(name string, scientistID, planetID int64, refs ReferenceResolver) (Mission, error) {
	var m Mission
	if err := m.SetName(name); err != nil {
		return Mission{}, err
	}
	if err := m.SetScientistID(scientistID, refs); err != nil {
		return Mission{}, err
	}
	if err := m.SetPlanetID(planetID, refs); err != nil {
		return Mission{}, err
	}
	return m, nil
}

// SetName assigns the mission name.
func (m *Mission) SetName(name string) error {
	if !nonEmpty(name) {
		return ValidationError{Entity: EntityMission, Field: "name", Message: MsgMissionName}
	}
	m.Name = name
	return nil
}

// SetScientistID points the mission at an existing scientist. Zero means no
// scientist and is rejected.
func (m *Mission) SetScientistID(id int64, refs ReferenceResolver) error {
	if id == 0 || refs == nil {
		return ValidationError{Entity: EntityMission, Field: "scientist_id", Message: MsgMissionScientist}
	}
	if _, ok := refs.FindScientist(id); !ok {
		return ValidationError{Entity: EntityMission, Field: "scientist_id", Message: MsgMissionScientist}
	}
	m.ScientistID = id
	return nil
}

// SetPlanetID points the mission at an existing planet.
func (m *Mission) SetPlanetID(id int64, refs ReferenceResolver) error {
	if id == 0 || refs == nil {
		return ValidationError{Entity: EntityMission, Field: "planet_id", Message: MsgMissionPlanet}
	}
	if _, ok := refs.FindPlanet(id); !ok {
		return ValidationError{Entity: EntityMission, Field: "planet_id", Message: MsgMissionPlanet}
	}
	m.PlanetID = id
	return nil
}

// Validate re-checks name and both references in declaration order.
func (m Mission) Validate(refs ReferenceResolver) error {
	_, err := NewMission(m.Name, m.ScientistID, m.PlanetID, refs)
	return err
}
