package fieldparser

import (
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/rules"
)

const (
	FieldReportNumber       = "report_number"
	FieldDate               = "date"
	FieldCallTime           = "call_time"
	FieldArrivalTime        = "arrival_time"
	FieldEndTime            = "end_time"
	FieldCustodyTime        = "custody_time"
	FieldDeliveryReason     = "delivery_reason"
	FieldOutcome            = "outcome"
	FieldNarrative          = "narrative"
	FieldComplementary      = "complementary_data"
	FieldCoordinates        = "coordinates"
	FieldReleaseCoordinates = "release_coordinates"
	FieldDestination        = "destination"
	FieldPopularName        = "popular_name"
	FieldScientificName     = "scientific_name"
	FieldQuantity           = "quantity"
	FieldLifeStage          = "life_stage"
	FieldHealthCondition    = "health_condition"
	FieldCircumstance       = "circumstance"
)

// ReportRules are evaluated against the whole report text.
var ReportRules = []Rule{
	{Field: FieldReportNumber, Capture: RestOfLine, Synonyms: []string{
		"Nº da ocorrência", "N° da ocorrência", "Número da ocorrência", "Numero da ocorrencia",
		"Ocorrência nº", "Nº do RAP", "RAP nº", "RAP", "Nº do BO", "BO nº", "Protocolo",
	}},
	{Field: FieldDate, Capture: RestOfLine, Synonyms: []string{
		"Data da ocorrência", "Data da ocorrencia", "Data do fato", "Data do acionamento",
		"Data/Hora", "Data e hora", "Data e horário", "Data",
	}},
	{Field: FieldCallTime, Capture: RestOfLine, Synonyms: []string{
		"Hora do acionamento", "Horário do acionamento", "Horario do acionamento", "Hora acionamento",
		"Data/Hora", "Data e hora", "Data e horário", "Hora",
	}},
	{Field: FieldArrivalTime, Capture: RestOfLine, Synonyms: []string{
		"Hora de chegada", "Horário de chegada", "Horario de chegada", "Chegada ao local", "Chegada",
	}},
	{Field: FieldEndTime, Capture: RestOfLine, Synonyms: []string{
		"Hora de término", "Horário de término", "Hora do término", "Hora de termino", "Término", "Encerramento",
	}},
	{Field: FieldCustodyTime, Capture: RestOfLine, Synonyms: []string{
		"Hora da entrega", "Horário da entrega", "Horario da entrega", "Horário de guarda", "Hora de guarda", "Hora da custódia",
	}},
	{Field: FieldDeliveryReason, Capture: RestOfLine, Synonyms: []string{
		"Motivo da entrega", "Motivo do recolhimento", "Motivo",
	}},
	{Field: FieldOutcome, Capture: RestOfLine, Synonyms: []string{
		"Desfecho", "Resultado", "Situação final", "Situacao final",
	}},
	{Field: FieldNarrative, Capture: Paragraphs, Synonyms: []string{
		"HISTÓRICO", "HISTORICO", "RELATO", "NARRATIVA", "DESCRIÇÃO DA OCORRÊNCIA", "DESCRICAO DA OCORRENCIA",
	}},
}

// ComplementaryHeading locates the complementary data section.
var ComplementaryHeading = Rule{
	Field:    FieldComplementary,
	Capture:  Block,
	Synonyms: []string{"DADOS COMPLEMENTARES", "DADOS COMPLEMENTARES DA OCORRÊNCIA", "INFORMAÇÕES COMPLEMENTARES"},
}

// ComplementaryRules are evaluated against the complementary data section,
// falling back to the whole text.
var ComplementaryRules = []Rule{
	{Field: FieldReleaseCoordinates, Capture: RestOfLine, Synonyms: []string{
		"Coordenadas da soltura", "Coordenadas de soltura", "Local da soltura", "Local de soltura",
	}},
	{Field: FieldCoordinates, Capture: RestOfLine, Synonyms: []string{
		"Coordenadas da ocorrência", "Coordenadas do resgate", "Coordenadas geográficas", "Coordenadas",
		"Lat/Long", "Lat/Lon", "Localização",
	}},
	{Field: FieldDestination, Capture: RestOfLine, Synonyms: []string{
		"Destinação", "Destinacao", "Destino", "Encaminhamento",
	}},
	{Field: FieldPopularName, Capture: RestOfLine, Synonyms: []string{
		"Nome popular", "Nome comum", "Espécie", "Especie", "Animal",
	}},
	{Field: FieldScientificName, Capture: RestOfLine, Synonyms: []string{
		"Nome científico", "Nome cientifico",
	}},
	{Field: FieldQuantity, Capture: RestOfLine, Synonyms: []string{
		"Quantidade", "Qtde", "Qtd", "Quant.",
	}},
	{Field: FieldLifeStage, Capture: RestOfLine, Synonyms: []string{
		"Estágio de vida", "Estagio de vida", "Fase de vida", "Faixa etária", "Idade",
	}},
	{Field: FieldHealthCondition, Capture: RestOfLine, Synonyms: []string{
		"Estado de saúde", "Estado de saude", "Condição de saúde", "Condição do animal", "Condição",
	}},
	{Field: FieldCircumstance, Capture: RestOfLine, Synonyms: []string{
		"Circunstância do resgate", "Circunstância", "Circunstancia", "Situação do resgate", "Situação",
	}},
}

type Parser struct {
	rules *rules.Set
}

func New(set *rules.Set) *Parser {
	if set == nil {
		set = rules.Default()
	}
	return &Parser{rules: set}
}

// Parse scans text for every known field. Fields that are not found stay
// empty; Parse never fails.
func (p *Parser) Parse(text string) domain.FieldBag {
	bag := domain.FieldBag{ReportType: p.rules.ReportType(text)}

	for _, rule := range ReportRules {
		if value, ok := rule.Find(text); ok {
			assign(&bag, rule.Field, value)
		}
	}

	section, hasSection := ComplementaryHeading.Find(text)
	for _, rule := range ComplementaryRules {
		var (
			value string
			ok    bool
		)
		if hasSection {
			value, ok = rule.Find(section)
		}
		if !ok {
			value, ok = rule.Find(text)
		}
		if ok {
			assign(&bag, rule.Field, value)
		}
	}
	return bag
}

func assign(bag *domain.FieldBag, field, value string) {
	c := &bag.Complementary
	switch field {
	case FieldReportNumber:
		bag.ReportNumber = value
	case FieldDate:
		bag.Date = value
	case FieldCallTime:
		bag.CallTime = value
	case FieldArrivalTime:
		bag.ArrivalTime = value
	case FieldEndTime:
		bag.EndTime = value
	case FieldCustodyTime:
		bag.CustodyTime = value
	case FieldDeliveryReason:
		bag.DeliveryReason = value
	case FieldOutcome:
		bag.Outcome = value
	case FieldNarrative:
		bag.Narrative = value
	case FieldCoordinates:
		c.Coordinates = value
	case FieldReleaseCoordinates:
		c.ReleaseCoordinates = value
	case FieldDestination:
		c.Destination = value
	case FieldPopularName:
		c.PopularName = value
	case FieldScientificName:
		c.ScientificName = value
	case FieldQuantity:
		c.Quantity = value
	case FieldLifeStage:
		c.LifeStage = value
	case FieldHealthCondition:
		c.HealthCondition = value
	case FieldCircumstance:
		c.Circumstance = value
	}
}
