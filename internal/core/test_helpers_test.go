package core

import (
	"context"
	"testing"
	"time"
)

type fixture struct {
	svc       *Service
	mars      Planet
	venus     Planet
	mel       Scientist
	ada       Scientist
	probe     Mission
	lander    Mission
	orbiter   Mission
	ctx       context.Context
	fixedTime time.Time
}

// newFixture seeds two planets, two scientists and three missions:
// mel flies probe (mars) and lander (venus); ada flies orbiter (mars).
func newFixture(t *testing.T, opts ...ServiceOption) fixture {
	t.Helper()
	f := fixture{ctx: context.Background(), fixedTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]ServiceOption{WithClock(ClockFunc(func() time.Time { return f.fixedTime }))}, opts...)
	f.svc = NewInMemoryService(NewDefaultRulesEngine(), opts...)
	var err error
	mustCreate := func(step string) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", step, err)
		}
	}
	f.mars, _, err = f.svc.CreatePlanet(f.ctx, Planet{Name: "Mars", DistanceFromEarth: 140, NearestStar: "Sun"})
	mustCreate("mars")
	f.venus, _, err = f.svc.CreatePlanet(f.ctx, Planet{Name: "Venus", DistanceFromEarth: 50, NearestStar: "Sun"})
	mustCreate("venus")
	f.mel, _, err = f.svc.CreateScientist(f.ctx, Scientist{Name: "Mel", FieldOfStudy: "Astrobiology"})
	mustCreate("mel")
	f.ada, _, err = f.svc.CreateScientist(f.ctx, Scientist{Name: "Ada", FieldOfStudy: "Geology"})
	mustCreate("ada")
	f.probe, _, err = f.svc.CreateMission(f.ctx, Mission{Name: "Probe", ScientistID: f.mel.ID, PlanetID: f.mars.ID})
	mustCreate("probe")
	f.lander, _, err = f.svc.CreateMission(f.ctx, Mission{Name: "Lander", ScientistID: f.mel.ID, PlanetID: f.venus.ID})
	mustCreate("lander")
	f.orbiter, _, err = f.svc.CreateMission(f.ctx, Mission{Name: "Orbiter", ScientistID: f.ada.ID, PlanetID: f.mars.ID})
	mustCreate("orbiter")
	return f
}

func planetDoc(p Planet) Document {
	return Document{"id": p.ID, "name": p.Name, "distance_from_earth": p.DistanceFromEarth, "nearest_star": p.NearestStar}
}

func scientistDoc(s Scientist) Document {
	return Document{"id": s.ID, "name": s.Name, "field_of_study": s.FieldOfStudy}
}

func missionDoc(m Mission) Document {
	return Document{"id": m.ID, "name": m.Name, "scientist_id": m.ScientistID, "planet_id": m.PlanetID}
}

func with(doc Document, key string, value any) Document {
	out := make(Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out[key] = value
	return out
}
