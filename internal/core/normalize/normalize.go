package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/rules"
)

var (
	brDatePattern = regexp.MustCompile(`(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})`)
	timePattern   = regexp.MustCompile(`\b(\d{1,2})\s*[hH:]\s*(\d{2})(?:\s*(?:min(?:utos)?|m|h))?\b`)
	integerRe     = regexp.MustCompile(`\d+`)
)

var numberWords = map[string]int{
	"um": 1, "uma": 1, "dois": 2, "duas": 2, "três": 3, "tres": 3, "quatro": 4, "cinco": 5,
	"seis": 6, "sete": 7, "oito": 8, "nove": 9, "dez": 10,
}

// Date converts DD/MM/YYYY text to ISO YYYY-MM-DD. Unrecognized text is
// returned unchanged.
func Date(text string) string {
	m := brDatePattern.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	return fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
}

// Time converts H[h|:]MM text, with an optional min/m/h suffix, to HH:MM:00.
// Unrecognized text is returned trimmed.
func Time(text string) string {
	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return strings.TrimSpace(text)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return strings.TrimSpace(text)
	}
	return fmt.Sprintf("%02d:%02d:00", hour, minute)
}

// Quantity returns the first integer in text, accepting small Portuguese
// number words. Zero means no quantity was found.
func Quantity(text string) int {
	if m := integerRe.FindString(text); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil {
			return n
		}
	}
	for _, word := range strings.FieldsFunc(strings.ToLower(text), isWordSeparator) {
		if n, ok := numberWords[word]; ok {
			return n
		}
	}
	return 0
}

func isWordSeparator(r rune) bool {
	switch r {
	case ' ', '\t', ',', '.', ';', '(', ')', '-':
		return true
	default:
		return false
	}
}

// DistributeQuantity splits total across life-stage sub-counts. "ambos" and
// an absent stage leave every sub-count at zero while the total is kept.
func DistributeQuantity(total int, stage domain.LifeStage) domain.Quantity {
	q := domain.Quantity{Total: total}
	switch stage {
	case domain.StageAdult:
		q.Adult = total
	case domain.StageYoung:
		q.Young = total
	case domain.StageHatchling:
		q.Hatchling = total
	}
	return q
}

type Normalizer struct {
	rules *rules.Set
}

func New(set *rules.Set) *Normalizer {
	if set == nil {
		set = rules.Default()
	}
	return &Normalizer{rules: set}
}

// Destination returns the canonical destination label for free text.
func (n *Normalizer) Destination(text string) string {
	return n.rules.Destination(text)
}

// Record converts a field bag into canonically typed values. It never fails:
// fields it cannot interpret are left as given or absent.
func (n *Normalizer) Record(bag domain.FieldBag) domain.NormalizedRecord {
	c := bag.Complementary
	rec := domain.NormalizedRecord{
		ReportNumber:    strings.TrimSpace(bag.ReportNumber),
		ReportType:      bag.ReportType,
		Date:            Date(strings.TrimSpace(bag.Date)),
		PopularName:     strings.TrimSpace(c.PopularName),
		ScientificName:  strings.TrimSpace(c.ScientificName),
		HealthCondition: strings.TrimSpace(c.HealthCondition),
		Circumstance:    strings.TrimSpace(c.Circumstance),
		Destination:     n.rules.Destination(c.Destination),
		DeliveryReason:  strings.TrimSpace(bag.DeliveryReason),
		Outcome:         strings.TrimSpace(bag.Outcome),
		Narrative:       strings.TrimSpace(bag.Narrative),
	}
	if rec.ReportType == "" {
		rec.ReportType = domain.ReportRescue
	}

	rec.CallTime = optionalTime(bag.CallTime)
	rec.ArrivalTime = optionalTime(bag.ArrivalTime)
	rec.EndTime = optionalTime(bag.EndTime)
	rec.CustodyTime = optionalTime(bag.CustodyTime)

	if lat, lon, ok := Coordinates(c.Coordinates); ok {
		rec.OriginLatitude, rec.OriginLongitude = &lat, &lon
	}
	if lat, lon, ok := Coordinates(c.ReleaseCoordinates); ok {
		rec.ReleaseLatitude, rec.ReleaseLongitude = &lat, &lon
	}

	stage, recognized := n.rules.LifeStage(c.LifeStage)
	if recognized {
		rec.LifeStage = string(stage)
	} else {
		rec.LifeStage = strings.TrimSpace(c.LifeStage)
	}
	rec.Quantity = DistributeQuantity(Quantity(c.Quantity), stage)

	return rec
}

func optionalTime(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return Time(text)
}
