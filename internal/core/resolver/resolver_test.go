package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

type lookupCall struct {
	kind domain.ReferenceKind
	text string
}

type dictionaryFake struct {
	entries map[domain.ReferenceKind][]domain.ReferenceEntry
	errs    map[domain.ReferenceKind]error
	calls   []lookupCall
}

func (f *dictionaryFake) Lookup(_ context.Context, kind domain.ReferenceKind, text string) (*domain.ReferenceEntry, error) {
	f.calls = append(f.calls, lookupCall{kind: kind, text: text})
	if err := f.errs[kind]; err != nil {
		return nil, err
	}
	needle := strings.ToLower(text)
	for _, entry := range f.entries[kind] {
		if strings.Contains(strings.ToLower(entry.Name), needle) {
			e := entry
			return &e, nil
		}
	}
	return nil, nil
}

func (f *dictionaryFake) callsFor(kind domain.ReferenceKind) []string {
	var texts []string
	for _, c := range f.calls {
		if c.kind == kind {
			texts = append(texts, c.text)
		}
	}
	return texts
}

func fullDictionary() *dictionaryFake {
	return &dictionaryFake{entries: map[domain.ReferenceKind][]domain.ReferenceEntry{
		domain.RefSpecies:     {{ID: "sp-1", Name: "Gambá-de-orelha-branca (Didelphis albiventris)"}},
		domain.RefDestination: {{ID: "de-1", Name: "CETAS/IBAMA"}},
		domain.RefOrigin:      {{ID: "or-1", Name: "CIOB/190"}},
		domain.RefHealthState: {{ID: "hs-1", Name: "Saudável"}},
		domain.RefLifeStage:   {{ID: "ls-1", Name: "Adulto"}},
		domain.RefOutcome:     {{ID: "oc-1", Name: "Entregue ao CETAS/IBAMA"}},
	}}
}

func baseRecord() domain.NormalizedRecord {
	return domain.NormalizedRecord{
		PopularName:     "Gambá",
		ScientificName:  "Didelphis albiventris",
		Destination:     "CETAS/IBAMA",
		HealthCondition: "Saudável",
		LifeStage:       "adulto",
		Narrative:       "Acionamento via CIOB para resgate de gambá.",
	}
}

func TestResolveAllReferences(t *testing.T) {
	dict := fullDictionary()
	out := New(dict, nil).Resolve(context.Background(), baseRecord())

	if len(out.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", out.Warnings)
	}
	checks := map[string]*string{
		"sp-1": out.SpeciesID,
		"de-1": out.DestinationID,
		"or-1": out.OriginID,
		"hs-1": out.HealthStateID,
		"ls-1": out.LifeStageID,
		"oc-1": out.OutcomeID,
	}
	for want, got := range checks {
		if got == nil || *got != want {
			t.Fatalf("expected id %s, got %v", want, got)
		}
	}
	if out.OriginLabel != "CIOB/190" {
		t.Fatalf("expected origin label CIOB/190, got %q", out.OriginLabel)
	}
}

func TestResolveSpeciesFallsBackToScientificName(t *testing.T) {
	dict := fullDictionary()
	rec := baseRecord()
	rec.PopularName = "Saruê"

	out := New(dict, nil).Resolve(context.Background(), rec)
	if out.SpeciesID == nil || *out.SpeciesID != "sp-1" {
		t.Fatalf("expected scientific-name fallback hit, got %v", out.SpeciesID)
	}
	texts := dict.callsFor(domain.RefSpecies)
	if len(texts) != 2 || texts[0] != "Saruê" || texts[1] != "Didelphis albiventris" {
		t.Fatalf("unexpected species lookup order: %v", texts)
	}
}

func TestResolveSpeciesPopularHitSkipsScientific(t *testing.T) {
	dict := fullDictionary()
	New(dict, nil).Resolve(context.Background(), baseRecord())

	if texts := dict.callsFor(domain.RefSpecies); len(texts) != 1 {
		t.Fatalf("expected a single species lookup, got %v", texts)
	}
}

func TestResolveMissesWarnOnlyForSpeciesDestinationOrigin(t *testing.T) {
	dict := &dictionaryFake{}
	out := New(dict, nil).Resolve(context.Background(), baseRecord())

	if out.SpeciesID != nil || out.DestinationID != nil || out.HealthStateID != nil || out.LifeStageID != nil || out.OutcomeID != nil {
		t.Fatalf("expected all ids to be null")
	}
	if len(out.Warnings) != 3 {
		t.Fatalf("expected 3 warnings (species, destination, origin), got %v", out.Warnings)
	}
	for i, prefix := range []string{"species", "destination", "origin"} {
		if !strings.HasPrefix(out.Warnings[i], prefix) {
			t.Fatalf("warning %d = %q, expected prefix %q", i, out.Warnings[i], prefix)
		}
	}
}

func TestResolveOriginFirstDeclaredCategoryWins(t *testing.T) {
	dict := fullDictionary()
	dict.entries[domain.RefOrigin] = append(dict.entries[domain.RefOrigin], domain.ReferenceEntry{ID: "or-2", Name: "Corpo de Bombeiros"})
	rec := baseRecord()
	rec.Narrative = "O Corpo de Bombeiros repassou a ocorrência ao CIOB."

	out := New(dict, nil).Resolve(context.Background(), rec)
	if out.OriginID == nil || *out.OriginID != "or-1" {
		t.Fatalf("expected CIOB/190 by declaration order, got %v", out.OriginID)
	}
}

func TestResolveNoOriginKeywordLeavesOriginNullWithoutWarning(t *testing.T) {
	dict := fullDictionary()
	rec := baseRecord()
	rec.Narrative = "Animal encontrado em via pública."

	out := New(dict, nil).Resolve(context.Background(), rec)
	if out.OriginID != nil || out.OriginLabel != "" {
		t.Fatalf("expected no origin, got %v %q", out.OriginID, out.OriginLabel)
	}
	if len(out.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", out.Warnings)
	}
	if texts := dict.callsFor(domain.RefOrigin); len(texts) != 0 {
		t.Fatalf("expected no origin lookup, got %v", texts)
	}
}

func TestResolveLookupFailureDegradesToWarning(t *testing.T) {
	dict := fullDictionary()
	dict.errs = map[domain.ReferenceKind]error{
		domain.RefSpecies:     errors.New("connection reset"),
		domain.RefHealthState: errors.New("connection reset"),
	}

	out := New(dict, nil).Resolve(context.Background(), baseRecord())
	if out.SpeciesID != nil || out.HealthStateID != nil {
		t.Fatalf("expected null ids on lookup failure")
	}
	if len(out.Warnings) != 2 {
		t.Fatalf("expected 2 failure warnings, got %v", out.Warnings)
	}
	for _, w := range out.Warnings {
		if !strings.HasPrefix(w, "lookup ") {
			t.Fatalf("unexpected warning %q", w)
		}
	}
}

func TestResolveOutcomeFallsBackToDestination(t *testing.T) {
	dict := fullDictionary()
	rec := baseRecord()
	rec.Outcome = ""

	New(dict, nil).Resolve(context.Background(), rec)
	texts := dict.callsFor(domain.RefOutcome)
	if len(texts) != 1 || texts[0] != "CETAS/IBAMA" {
		t.Fatalf("expected outcome lookup with destination label, got %v", texts)
	}
}
