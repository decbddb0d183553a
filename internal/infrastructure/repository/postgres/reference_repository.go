package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/resilience"
)

// referenceQueries holds one lookup per dictionary. Candidates whose name
// contains the text are ordered by name length so the closest entry wins.
var referenceQueries = map[domain.ReferenceKind]string{
	domain.RefSpecies: `
SELECT id, popular_name
FROM species
WHERE popular_name ILIKE '%' || $1 || '%' OR scientific_name ILIKE '%' || $1 || '%'
ORDER BY length(popular_name), id
LIMIT 1`,
	domain.RefDestination: namedLookup("destinations"),
	domain.RefOrigin:      namedLookup("origins"),
	domain.RefHealthState: namedLookup("health_states"),
	domain.RefLifeStage:   namedLookup("life_stages"),
	domain.RefOutcome:     namedLookup("outcomes"),
}

func namedLookup(table string) string {
	return `
SELECT id, name
FROM ` + table + `
WHERE name ILIKE '%' || $1 || '%'
ORDER BY length(name), id
LIMIT 1`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type ReferenceRepository struct {
	db       *sql.DB
	executor *resilience.Executor
}

func NewReferenceRepository(db *sql.DB, executor *resilience.Executor) *ReferenceRepository {
	return &ReferenceRepository{db: db, executor: executor}
}

// Lookup returns the best entry whose name contains text, ignoring case, or
// nil when nothing matches.
func (r *ReferenceRepository) Lookup(ctx context.Context, kind domain.ReferenceKind, text string) (*domain.ReferenceEntry, error) {
	query, ok := referenceQueries[kind]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "reference lookup", fmt.Errorf("unknown dictionary %q", kind))
	}
	needle := strings.TrimSpace(text)
	if needle == "" {
		return nil, nil
	}
	needle = likeEscaper.Replace(needle)

	entry, err := resilience.Call(ctx, r.executor, "postgres.lookup_"+string(kind), func(ctx context.Context) (*domain.ReferenceEntry, error) {
		var e domain.ReferenceEntry
		err := r.db.QueryRowContext(ctx, query, needle).Scan(&e.ID, &e.Name)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &e, nil
	}, classifyPGError)
	if err != nil {
		return nil, wrapStoreError("lookup "+string(kind), err)
	}
	return entry, nil
}
