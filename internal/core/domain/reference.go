package domain

// ReferenceKind names one reference dictionary.
type ReferenceKind string

const (
	RefSpecies     ReferenceKind = "species"
	RefDestination ReferenceKind = "destination"
	RefOrigin      ReferenceKind = "origin"
	RefHealthState ReferenceKind = "health_state"
	RefLifeStage   ReferenceKind = "life_stage"
	RefOutcome     ReferenceKind = "outcome"
)

type ReferenceEntry struct {
	ID   string
	Name string
}
