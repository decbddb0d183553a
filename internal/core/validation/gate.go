package validation

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

const coordinateBound = 180.0

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d:[0-5]\d$`)

// Check applies the required-field rules and returns every missing field in
// one pass. It has no side effects.
func Check(rec domain.NormalizedRecord) domain.ValidationOutcome {
	missing := make([]string, 0, 4)

	if !isISODate(rec.Date) {
		missing = append(missing, domain.FieldDate)
	}
	if !isCoordinate(rec.OriginLatitude) {
		missing = append(missing, domain.FieldOriginLatitude)
	}
	if !isCoordinate(rec.OriginLongitude) {
		missing = append(missing, domain.FieldOriginLongitude)
	}
	if strings.TrimSpace(rec.PopularName) == "" {
		missing = append(missing, domain.FieldPopularName)
	}
	if rec.Quantity.Total < 1 {
		missing = append(missing, domain.FieldQuantityTotal)
	}
	destination := strings.TrimSpace(rec.Destination)
	if destination == "" {
		missing = append(missing, domain.FieldDestination)
	}

	switch destination {
	case domain.DestinationRelease:
		if !isCoordinate(rec.ReleaseLatitude) {
			missing = append(missing, domain.FieldReleaseLatitude)
		}
		if !isCoordinate(rec.ReleaseLongitude) {
			missing = append(missing, domain.FieldReleaseLongitude)
		}
	case domain.DestinationCEAPA:
		if !clockPattern.MatchString(rec.CustodyTime) {
			missing = append(missing, domain.FieldCustodyTime)
		}
		if strings.TrimSpace(rec.DeliveryReason) == "" {
			missing = append(missing, domain.FieldDeliveryReason)
		}
	}

	return domain.ValidationOutcome{
		Valid:   len(missing) == 0,
		Missing: missing,
	}
}

func isISODate(value string) bool {
	if value == "" {
		return false
	}
	_, err := time.Parse(time.DateOnly, value)
	return err == nil
}

func isCoordinate(value *float64) bool {
	if value == nil {
		return false
	}
	v := *value
	return !math.IsNaN(v) && v >= -coordinateBound && v <= coordinateBound
}
