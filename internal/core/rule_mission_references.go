package core

import (
	"context"
	"fmt"

	"missioncore/pkg/domain"
)

// MissionReferencesRuleName identifies the referential integrity rule.
const MissionReferencesRuleName = "mission_references"

// NewMissionReferencesRule returns the rule that blocks any transaction leaving
// a mission pointing at a missing scientist or planet.
func NewMissionReferencesRule() domain.Rule {
	return missionReferencesRule{}
}

type missionReferencesRule struct{}

func (missionReferencesRule) Name() string { return MissionReferencesRuleName }

func (missionReferencesRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, mission := range view.ListMissions() {
		if _, ok := view.FindScientist(mission.ScientistID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     MissionReferencesRuleName,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("mission %d references missing scientist %d", mission.ID, mission.ScientistID),
				Entity:   domain.EntityMission,
				EntityID: mission.ID,
			})
		}
		if _, ok := view.FindPlanet(mission.PlanetID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     MissionReferencesRuleName,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("mission %d references missing planet %d", mission.ID, mission.PlanetID),
				Entity:   domain.EntityMission,
				EntityID: mission.ID,
			})
		}
	}
	return res, nil
}
