package core

import (
	"sort"
	"strings"
)

// Path addresses a key in a serialized document relative to the root entity,
// e.g. PathOf("missions", "planet"). List elements share their list's path.
type Path string

// PathOf joins key segments into a path.
func PathOf(segments ...string) Path {
	return Path(strings.Join(segments, "."))
}

// Child extends the path by one key.
func (p Path) Child(key string) Path {
	if p == "" {
		return Path(key)
	}
	return Path(string(p) + "." + key)
}

// Join appends a relative path.
func (p Path) Join(rel Path) Path {
	if p == "" {
		return rel
	}
	if rel == "" {
		return p
	}
	return Path(string(p) + "." + string(rel))
}

// ExclusionSet holds the paths a serializer must not emit.
type ExclusionSet map[Path]struct{}

// Exclude builds an exclusion set from paths.
func Exclude(paths ...Path) ExclusionSet {
	set := make(ExclusionSet, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether path is excluded.
func (s ExclusionSet) Has(path Path) bool {
	_, ok := s[path]
	return ok
}

// With returns a copy of the set extended by paths, each prefixed by at.
func (s ExclusionSet) With(at Path, paths ...Path) ExclusionSet {
	out := make(ExclusionSet, len(s)+len(paths))
	for p := range s {
		out[p] = struct{}{}
	}
	for _, p := range paths {
		out[at.Join(p)] = struct{}{}
	}
	return out
}

// Options selects the shape of a serialized document. When Only is non-empty
// just the listed direct fields are emitted and relationships are skipped.
type Options struct {
	Only    []string
	Exclude ExclusionSet
}

// Document is a JSON-ready serialized entity.
type Document map[string]any

// Graph resolves the relationships a serializer expands. Transaction views
// satisfy it.
type Graph interface {
	FindPlanet(id int64) (Planet, bool)
	FindScientist(id int64) (Scientist, bool)
	MissionsForPlanet(planetID int64) []Mission
	MissionsForScientist(scientistID int64) []Mission
}

// DefaultExclusions lists the back-references an entity type never re-embeds,
// relative to the position the entity is serialized at.
func DefaultExclusions(entity EntityType) []Path {
	switch entity {
	case EntityPlanet:
		return []Path{PathOf("missions", "planet")}
	case EntityScientist:
		return []Path{PathOf("missions", "scientist")}
	case EntityMission:
		return []Path{PathOf("planet", "missions"), PathOf("scientist", "missions")}
	default:
		return nil
	}
}

// Serializer converts entities into documents, expanding relationships from
// the graph while pruning excluded edges.
type Serializer struct {
	graph Graph
}

// NewSerializer binds a serializer to a graph.
func NewSerializer(graph Graph) *Serializer {
	return &Serializer{graph: graph}
}

// Planet serializes a planet and, unless pruned, its missions.
func (s *Serializer) Planet(p Planet, opts Options) Document {
	if len(opts.Only) > 0 {
		return only(planetFields(p), opts.Only)
	}
	return s.newWalk().planet(p, "", opts.Exclude)
}

// Scientist serializes a scientist and, unless pruned, its missions.
func (s *Serializer) Scientist(sc Scientist, opts Options) Document {
	if len(opts.Only) > 0 {
		return only(scientistFields(sc), opts.Only)
	}
	return s.newWalk().scientist(sc, "", opts.Exclude)
}

// Mission serializes a mission and, unless pruned, its planet and scientist.
func (s *Serializer) Mission(m Mission, opts Options) Document {
	if len(opts.Only) > 0 {
		return only(missionFields(m), opts.Only)
	}
	return s.newWalk().mission(m, "", opts.Exclude)
}

// Planets serializes each planet with the same options.
func (s *Serializer) Planets(planets []Planet, opts Options) []Document {
	out := make([]Document, 0, len(planets))
	for _, p := range planets {
		out = append(out, s.Planet(p, opts))
	}
	return out
}

// Scientists serializes each scientist with the same options.
func (s *Serializer) Scientists(scientists []Scientist, opts Options) []Document {
	out := make([]Document, 0, len(scientists))
	for _, sc := range scientists {
		out = append(out, s.Scientist(sc, opts))
	}
	return out
}

// Missions serializes each mission with the same options.
func (s *Serializer) Missions(missions []Mission, opts Options) []Document {
	out := make([]Document, 0, len(missions))
	for _, m := range missions {
		out = append(out, s.Mission(m, opts))
	}
	return out
}

type visitKey struct {
	entity EntityType
	id     int64
}

type walk struct {
	graph   Graph
	visited map[visitKey]bool
}

func (s *Serializer) newWalk() *walk {
	return &walk{graph: s.graph, visited: make(map[visitKey]bool)}
}

// enter marks (entity, id) as on the current path; the returned func unmarks it.
func (w *walk) enter(entity EntityType, id int64) (func(), bool) {
	key := visitKey{entity: entity, id: id}
	if w.visited[key] {
		return nil, false
	}
	w.visited[key] = true
	return func() { delete(w.visited, key) }, true
}

func (w *walk) planet(p Planet, at Path, excluded ExclusionSet) Document {
	leave, ok := w.enter(EntityPlanet, p.ID)
	if !ok {
		return nil
	}
	defer leave()
	excluded = excluded.With(at, DefaultExclusions(EntityPlanet)...)
	doc := fields(planetFields(p), at, excluded)
	if key := at.Child("missions"); !excluded.Has(key) && w.graph != nil {
		doc["missions"] = w.missionList(w.graph.MissionsForPlanet(p.ID), key, excluded)
	}
	return doc
}

func (w *walk) scientist(sc Scientist, at Path, excluded ExclusionSet) Document {
	leave, ok := w.enter(EntityScientist, sc.ID)
	if !ok {
		return nil
	}
	defer leave()
	excluded = excluded.With(at, DefaultExclusions(EntityScientist)...)
	doc := fields(scientistFields(sc), at, excluded)
	if key := at.Child("missions"); !excluded.Has(key) && w.graph != nil {
		doc["missions"] = w.missionList(w.graph.MissionsForScientist(sc.ID), key, excluded)
	}
	return doc
}

func (w *walk) mission(m Mission, at Path, excluded ExclusionSet) Document {
	leave, ok := w.enter(EntityMission, m.ID)
	if !ok {
		return nil
	}
	defer leave()
	excluded = excluded.With(at, DefaultExclusions(EntityMission)...)
	doc := fields(missionFields(m), at, excluded)
	if key := at.Child("planet"); !excluded.Has(key) {
		var embedded Document
		if w.graph != nil {
			if p, found := w.graph.FindPlanet(m.PlanetID); found {
				embedded = w.planet(p, key, excluded)
			}
		}
		doc["planet"] = nullable(embedded)
	}
	if key := at.Child("scientist"); !excluded.Has(key) {
		var embedded Document
		if w.graph != nil {
			if sc, found := w.graph.FindScientist(m.ScientistID); found {
				embedded = w.scientist(sc, key, excluded)
			}
		}
		doc["scientist"] = nullable(embedded)
	}
	return doc
}

func (w *walk) missionList(missions []Mission, at Path, excluded ExclusionSet) []Document {
	sorted := make([]Mission, len(missions))
	copy(sorted, missions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	out := make([]Document, 0, len(sorted))
	for _, m := range sorted {
		if doc := w.mission(m, at, excluded); doc != nil {
			out = append(out, doc)
		}
	}
	return out
}

// nullable keeps a nil document as JSON null rather than a typed nil map.
func nullable(doc Document) any {
	if doc == nil {
		return nil
	}
	return doc
}

type field struct {
	name  string
	value any
}

func planetFields(p Planet) []field {
	return []field{
		{"id", p.ID},
		{"name", p.Name},
		{"distance_from_earth", p.DistanceFromEarth},
		{"nearest_star", p.NearestStar},
	}
}

func scientistFields(sc Scientist) []field {
	return []field{
		{"id", sc.ID},
		{"name", sc.Name},
		{"field_of_study", sc.FieldOfStudy},
	}
}

func missionFields(m Mission) []field {
	return []field{
		{"id", m.ID},
		{"name", m.Name},
		{"scientist_id", m.ScientistID},
		{"planet_id", m.PlanetID},
	}
}

func fields(all []field, at Path, excluded ExclusionSet) Document {
	doc := make(Document, len(all)+2)
	for _, f := range all {
		if excluded.Has(at.Child(f.name)) {
			continue
		}
		doc[f.name] = f.value
	}
	return doc
}

func only(all []field, allow []string) Document {
	allowed := make(map[string]bool, len(allow))
	for _, name := range allow {
		allowed[name] = true
	}
	doc := make(Document, len(allow))
	for _, f := range all {
		if allowed[f.name] {
			doc[f.name] = f.value
		}
	}
	return doc
}
