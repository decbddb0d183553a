package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/resilience"
)

type RescueRepository struct {
	db       *sql.DB
	executor *resilience.Executor
}

func NewRescueRepository(db *sql.DB, executor *resilience.Executor) *RescueRepository {
	return &RescueRepository{db: db, executor: executor}
}

const insertRescueSQL = `
INSERT INTO rescue_records (
	id, source_file_id, report_number, report_type, occurrence_date,
	call_time, arrival_time, end_time, custody_time,
	origin_latitude, origin_longitude, release_latitude, release_longitude,
	popular_name, scientific_name,
	quantity_adult, quantity_young, quantity_hatchling, quantity_total,
	destination, delivery_reason, circumstance, narrative,
	species_id, destination_id, origin_id, health_state_id, life_stage_id, outcome_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)
`

// InsertRescue writes one row. Each call is its own statement, so a failed
// row never rolls back rows inserted before it.
func (r *RescueRepository) InsertRescue(ctx context.Context, row domain.RescueRow) (string, error) {
	err := r.executor.Do(ctx, "postgres.insert_rescue", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, insertRescueSQL,
			row.ID, row.SourceFileID, nullIfEmpty(row.ReportNumber), string(row.ReportType), row.OccurrenceDate,
			nullIfEmpty(row.CallTime), nullIfEmpty(row.ArrivalTime), nullIfEmpty(row.EndTime), nullIfEmpty(row.CustodyTime),
			row.OriginLatitude, row.OriginLongitude, row.ReleaseLatitude, row.ReleaseLongitude,
			row.PopularName, nullIfEmpty(row.ScientificName),
			row.Quantity.Adult, row.Quantity.Young, row.Quantity.Hatchling, row.Quantity.Total,
			row.Destination, nullIfEmpty(row.DeliveryReason), nullIfEmpty(row.Circumstance), nullIfEmpty(row.Narrative),
			row.SpeciesID, row.DestinationID, row.OriginID, row.HealthStateID, row.LifeStageID, row.OutcomeID,
		)
		return err
	}, classifyPGError)
	if err != nil {
		return "", wrapStoreError("insert rescue record", err)
	}
	return row.ID, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// wrapStoreError marks failures worth retrying later as temporary.
func wrapStoreError(op string, err error) error {
	if classifyPGError(err).Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
