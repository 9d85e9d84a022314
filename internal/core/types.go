package core

import "missioncore/pkg/domain"

type (
	// Planet aliases domain.Planet.
	Planet = domain.Planet
	// Scientist aliases domain.Scientist.
	Scientist = domain.Scientist
	// Mission aliases domain.Mission.
	Mission = domain.Mission
	// ScientistPatch aliases domain.ScientistPatch.
	ScientistPatch = domain.ScientistPatch
	// MissionPatch aliases domain.MissionPatch.
	MissionPatch = domain.MissionPatch
	// PlanetPatch aliases domain.PlanetPatch.
	PlanetPatch = domain.PlanetPatch
	// EntityType aliases domain.EntityType.
	EntityType = domain.EntityType
	// Change aliases domain.Change.
	Change = domain.Change
	// Action aliases domain.Action.
	Action = domain.Action
	// Result aliases domain.Result.
	Result = domain.Result
	// Violation aliases domain.Violation.
	Violation = domain.Violation
	// Rule aliases domain.Rule.
	Rule = domain.Rule
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore.
	PersistentStore = domain.PersistentStore
)

const (
	EntityPlanet    = domain.EntityPlanet
	EntityScientist = domain.EntityScientist
	EntityMission   = domain.EntityMission

	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
