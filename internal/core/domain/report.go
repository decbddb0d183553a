package domain

type ReportType string

const (
	ReportRescue             ReportType = "rescue"
	ReportEnvironmentalCrime ReportType = "environmental_crime"
	ReportCommonCrime        ReportType = "common_crime"
	ReportPrevention         ReportType = "prevention"
)

// FieldBag holds raw candidate values found in a report. Empty strings mean
// the field was not found.
type FieldBag struct {
	ReportNumber   string
	ReportType     ReportType
	Date           string
	CallTime       string
	ArrivalTime    string
	EndTime        string
	CustodyTime    string
	DeliveryReason string
	Outcome        string
	Narrative      string

	Complementary ComplementaryData
}

type ComplementaryData struct {
	Coordinates        string
	ReleaseCoordinates string
	Destination        string
	PopularName        string
	ScientificName     string
	Quantity           string
	LifeStage          string
	HealthCondition    string
	Circumstance       string
}

type LifeStage string

const (
	StageAdult     LifeStage = "adulto"
	StageYoung     LifeStage = "jovem"
	StageHatchling LifeStage = "filhote"
	StageBoth      LifeStage = "ambos"
)

type Quantity struct {
	Adult     int `json:"adult"`
	Young     int `json:"young"`
	Hatchling int `json:"hatchling"`
	Total     int `json:"total"`
}

// Canonical destination labels that carry extra requirements.
const (
	DestinationRelease = "Soltura"
	DestinationCEAPA   = "CEAPA/BPMA"
)

type NormalizedRecord struct {
	ReportNumber string
	ReportType   ReportType

	Date        string
	CallTime    string
	ArrivalTime string
	EndTime     string
	CustodyTime string

	OriginLatitude   *float64
	OriginLongitude  *float64
	ReleaseLatitude  *float64
	ReleaseLongitude *float64

	PopularName     string
	ScientificName  string
	Quantity        Quantity
	LifeStage       string
	HealthCondition string
	Circumstance    string
	Destination     string
	DeliveryReason  string
	Outcome         string
	Narrative       string
}

// Missing-field identifiers reported by the validation gate.
const (
	FieldDate             = "occurrence_date"
	FieldOriginLatitude   = "origin_latitude"
	FieldOriginLongitude  = "origin_longitude"
	FieldPopularName      = "species_popular_name"
	FieldQuantityTotal    = "quantity_total"
	FieldDestination      = "destination"
	FieldReleaseLatitude  = "release_latitude"
	FieldReleaseLongitude = "release_longitude"
	FieldCustodyTime      = "custody_time"
	FieldDeliveryReason   = "delivery_reason"

	// FieldExtractedText marks a submission whose text could not be recovered.
	FieldExtractedText = "extracted_text"
)

type ValidationOutcome struct {
	Valid   bool
	Missing []string
}

type ResolvedRecord struct {
	NormalizedRecord

	SpeciesID     *string
	DestinationID *string
	OriginID      *string
	OriginLabel   string
	HealthStateID *string
	LifeStageID   *string
	OutcomeID     *string

	Warnings []string
}

// RescueRow is one candidate row for the rescue records table.
type RescueRow struct {
	ID             string
	SourceFileID   string
	ReportNumber   string
	ReportType     ReportType
	OccurrenceDate string
	CallTime       string
	ArrivalTime    string
	EndTime        string
	CustodyTime    string

	OriginLatitude   *float64
	OriginLongitude  *float64
	ReleaseLatitude  *float64
	ReleaseLongitude *float64

	PopularName    string
	ScientificName string
	Quantity       Quantity
	Destination    string
	DeliveryReason string
	Circumstance   string
	Narrative      string

	SpeciesID     *string
	DestinationID *string
	OriginID      *string
	HealthStateID *string
	LifeStageID   *string
	OutcomeID     *string
}
