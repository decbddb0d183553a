package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/ports"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/rules"
)

// Resolver maps natural-language values of a validated record onto reference
// dictionary identifiers. Misses never fail the import.
//
// Species, destination and origin misses add a warning. Health state, life
// stage and outcome misses are left null without one; only a failed lookup
// call warns for those.
type Resolver struct {
	dict  ports.ReferenceDictionary
	rules *rules.Set
}

func New(dict ports.ReferenceDictionary, set *rules.Set) *Resolver {
	if set == nil {
		set = rules.Default()
	}
	return &Resolver{dict: dict, rules: set}
}

func (r *Resolver) Resolve(ctx context.Context, rec domain.NormalizedRecord) domain.ResolvedRecord {
	out := domain.ResolvedRecord{
		NormalizedRecord: rec,
		Warnings:         []string{},
	}

	species, err := r.find(ctx, domain.RefSpecies, rec.PopularName, rec.ScientificName)
	out.SpeciesID = entryID(species)
	if species == nil {
		out.Warnings = append(out.Warnings, missWarning(domain.RefSpecies, firstNonEmpty(rec.PopularName, rec.ScientificName), err))
	}

	destination, err := r.find(ctx, domain.RefDestination, rec.Destination)
	out.DestinationID = entryID(destination)
	if destination == nil {
		out.Warnings = append(out.Warnings, missWarning(domain.RefDestination, rec.Destination, err))
	}

	if category, ok := r.rules.Origin(rec.Narrative); ok {
		out.OriginLabel = category
		origin, err := r.find(ctx, domain.RefOrigin, category)
		out.OriginID = entryID(origin)
		if origin == nil {
			out.Warnings = append(out.Warnings, missWarning(domain.RefOrigin, category, err))
		}
	}

	health, err := r.find(ctx, domain.RefHealthState, rec.HealthCondition)
	out.HealthStateID = entryID(health)
	if err != nil {
		out.Warnings = append(out.Warnings, failureWarning(domain.RefHealthState, err))
	}

	stage, err := r.find(ctx, domain.RefLifeStage, rec.LifeStage)
	out.LifeStageID = entryID(stage)
	if err != nil {
		out.Warnings = append(out.Warnings, failureWarning(domain.RefLifeStage, err))
	}

	outcomeText := rec.Outcome
	if strings.TrimSpace(outcomeText) == "" {
		outcomeText = rec.Destination
	}
	outcome, err := r.find(ctx, domain.RefOutcome, outcomeText)
	out.OutcomeID = entryID(outcome)
	if err != nil {
		out.Warnings = append(out.Warnings, failureWarning(domain.RefOutcome, err))
	}

	return out
}

// find tries each non-empty text in order and returns the first hit. A
// lookup error is remembered but does not stop the remaining attempts.
func (r *Resolver) find(ctx context.Context, kind domain.ReferenceKind, texts ...string) (*domain.ReferenceEntry, error) {
	var lastErr error
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		entry, err := r.dict.Lookup(ctx, kind, text)
		if err != nil {
			lastErr = err
			continue
		}
		if entry != nil {
			return entry, nil
		}
	}
	return nil, lastErr
}

func entryID(entry *domain.ReferenceEntry) *string {
	if entry == nil {
		return nil
	}
	id := entry.ID
	return &id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func missWarning(kind domain.ReferenceKind, text string, err error) string {
	if err != nil {
		return failureWarning(kind, err)
	}
	return fmt.Sprintf("%s not resolved: %q", kind, text)
}

func failureWarning(kind domain.ReferenceKind, err error) string {
	return fmt.Sprintf("lookup %s failed: %v", kind, err)
}
