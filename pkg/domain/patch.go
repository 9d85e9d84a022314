package domain

import (
	"encoding/json"
)

// ScientistPatch carries the subset of scientist fields supplied by a partial
// update. A nil field was not supplied; a JSON null is applied as "".
type ScientistPatch struct {
	Name         *string `json:"name"`
	FieldOfStudy *string `json:"field_of_study"`
}

// Apply assigns each supplied field through its setter. The first failure is
// returned and later fields are not applied.
func (p ScientistPatch) Apply(s *Scientist) error {
	if p.Name != nil {
		if err := s.SetName(*p.Name); err != nil {
			return err
		}
	}
	if p.FieldOfStudy != nil {
		if err := s.SetFieldOfStudy(*p.FieldOfStudy); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalJSON keeps explicit nulls distinguishable from absent keys.
func (p *ScientistPatch) UnmarshalJSON(data []byte) error {
	fields, err := decodePatchFields(data)
	if err != nil {
		return err
	}
	var out ScientistPatch
	if out.Name, err = patchField[string](fields, "name"); err != nil {
		return err
	}
	if out.FieldOfStudy, err = patchField[string](fields, "field_of_study"); err != nil {
		return err
	}
	*p = out
	return nil
}

// MissionPatch carries the subset of mission fields supplied by a partial update.
type MissionPatch struct {
	Name        *string `json:"name"`
	ScientistID *int64  `json:"scientist_id"`
	PlanetID    *int64  `json:"planet_id"`
}

// Apply assigns each supplied field, resolving references through refs.
func (p MissionPatch) Apply(m *Mission, refs ReferenceResolver) error {
	if p.Name != nil {
		if err := m.SetName(*p.Name); err != nil {
			return err
		}
	}
	if p.ScientistID != nil {
		if err := m.SetScientistID(*p.ScientistID, refs); err != nil {
			return err
		}
	}
	if p.PlanetID != nil {
		if err := m.SetPlanetID(*p.PlanetID, refs); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalJSON keeps explicit nulls distinguishable from absent keys.
func (p *MissionPatch) UnmarshalJSON(data []byte) error {
	fields, err := decodePatchFields(data)
	if err != nil {
		return err
	}
	var out MissionPatch
	if out.Name, err = patchField[string](fields, "name"); err != nil {
		return err
	}
	if out.ScientistID, err = patchField[int64](fields, "scientist_id"); err != nil {
		return err
	}
	if out.PlanetID, err = patchField[int64](fields, "planet_id"); err != nil {
		return err
	}
	*p = out
	return nil
}

// PlanetPatch carries the subset of planet fields supplied by a partial update.
type PlanetPatch struct {
	Name              *string `json:"name" yaml:"name"`
	DistanceFromEarth *int64  `json:"distance_from_earth" yaml:"distance_from_earth"`
	NearestStar       *string `json:"nearest_star" yaml:"nearest_star"`
}

// Apply assigns each supplied planet field.
func (p PlanetPatch) Apply(planet *Planet) error {
	if p.Name != nil {
		planet.Name = *p.Name
	}
	if p.DistanceFromEarth != nil {
		planet.DistanceFromEarth = *p.DistanceFromEarth
	}
	if p.NearestStar != nil {
		planet.NearestStar = *p.NearestStar
	}
	return nil
}

func decodePatchFields(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// patchField decodes one key. Absent keys yield nil; null yields a pointer to
// the zero value so the setter rejects it.
func patchField[T any](fields map[string]json.RawMessage, key string) (*T, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, nil
	}
	var value *T
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	if value == nil {
		value = new(T)
	}
	return value, nil
}
