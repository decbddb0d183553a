package reference

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

type dictionaryFake struct {
	calls   int
	entries map[string]*domain.ReferenceEntry
	err     error
}

func (f *dictionaryFake) Lookup(_ context.Context, kind domain.ReferenceKind, text string) (*domain.ReferenceEntry, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[string(kind)+":"+text], nil
}

func TestCachedDictionaryRemembersHits(t *testing.T) {
	next := &dictionaryFake{entries: map[string]*domain.ReferenceEntry{
		"species:Gambá": {ID: "sp-1", Name: "Gambá-de-orelha-branca"},
	}}
	dict := NewCachedDictionary(next, time.Minute)

	for i := 0; i < 3; i++ {
		entry, err := dict.Lookup(context.Background(), domain.RefSpecies, "Gambá")
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if entry == nil || entry.ID != "sp-1" {
			t.Fatalf("unexpected entry %+v", entry)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one backing lookup, got %d", next.calls)
	}
}

func TestCachedDictionaryKeysIgnoreCaseAndKind(t *testing.T) {
	next := &dictionaryFake{entries: map[string]*domain.ReferenceEntry{
		"species:Gambá":     {ID: "sp-1"},
		"destination:Gambá": {ID: "dst-1"},
	}}
	dict := NewCachedDictionary(next, time.Minute)

	_, _ = dict.Lookup(context.Background(), domain.RefSpecies, "Gambá")
	_, _ = dict.Lookup(context.Background(), domain.RefSpecies, " gambá ")
	_, _ = dict.Lookup(context.Background(), domain.RefDestination, "Gambá")

	if next.calls != 2 {
		t.Fatalf("expected 2 backing lookups, got %d", next.calls)
	}
}

func TestCachedDictionaryDoesNotRememberMisses(t *testing.T) {
	next := &dictionaryFake{entries: map[string]*domain.ReferenceEntry{}}
	dict := NewCachedDictionary(next, time.Minute)

	entry, err := dict.Lookup(context.Background(), domain.RefSpecies, "Tamanduá")
	if err != nil || entry != nil {
		t.Fatalf("expected a clean miss, got %+v / %v", entry, err)
	}

	next.entries["species:Tamanduá"] = &domain.ReferenceEntry{ID: "sp-9"}
	entry, err = dict.Lookup(context.Background(), domain.RefSpecies, "Tamanduá")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if entry == nil || entry.ID != "sp-9" {
		t.Fatalf("expected the newly added entry, got %+v", entry)
	}
	if next.calls != 2 {
		t.Fatalf("expected every miss to reach the store, got %d", next.calls)
	}
	if dict.(*CachedDictionary).Len() != 1 {
		t.Fatalf("expected only the hit to be cached")
	}
}

func TestCachedDictionaryDoesNotRememberFailures(t *testing.T) {
	next := &dictionaryFake{err: errors.New("connection reset")}
	dict := NewCachedDictionary(next, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := dict.Lookup(context.Background(), domain.RefSpecies, "Gambá"); err == nil {
			t.Fatalf("expected lookup error")
		}
	}
	if next.calls != 2 {
		t.Fatalf("expected every failed lookup to reach the store, got %d", next.calls)
	}
}

func TestCachedDictionaryReturnsCopies(t *testing.T) {
	next := &dictionaryFake{entries: map[string]*domain.ReferenceEntry{
		"species:Gambá": {ID: "sp-1"},
	}}
	dict := NewCachedDictionary(next, time.Minute)

	first, _ := dict.Lookup(context.Background(), domain.RefSpecies, "Gambá")
	first.ID = "mutated"
	second, _ := dict.Lookup(context.Background(), domain.RefSpecies, "Gambá")
	if second.ID != "sp-1" {
		t.Fatalf("cached entry was mutated through a returned pointer: %+v", second)
	}
}

func TestNewCachedDictionaryDisabled(t *testing.T) {
	next := &dictionaryFake{}
	if dict := NewCachedDictionary(next, 0); dict != next {
		t.Fatalf("expected the backing dictionary when ttl is zero")
	}
}
