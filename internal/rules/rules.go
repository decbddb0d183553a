package rules

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Set is the collection of ordered keyword tables. Every table is evaluated in
// declaration order and the first entry with a matching keyword wins.
type Set struct {
	ReportTypes  []ReportTypeRule  `yaml:"report_types"`
	Destinations []DestinationRule `yaml:"destinations"`
	Origins      []OriginRule      `yaml:"origins"`
	LifeStages   []LifeStageRule   `yaml:"life_stages"`
}

type ReportTypeRule struct {
	Type     domain.ReportType `yaml:"type"`
	Keywords []string          `yaml:"keywords"`
}

type DestinationRule struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

type OriginRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

type LifeStageRule struct {
	Stage    domain.LifeStage `yaml:"stage"`
	Keywords []string         `yaml:"keywords"`
}

// Default returns the embedded rule set.
func Default() *Set {
	set, err := Parse(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rules are invalid: %v", err))
	}
	return set
}

// Load reads a rule set from path, or returns the embedded one when path is
// empty.
func Load(path string) (*Set, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	set.lowerKeywords()
	return &set, nil
}

func (s *Set) validate() error {
	if len(s.ReportTypes) == 0 {
		return fmt.Errorf("rules: report_types is empty")
	}
	if len(s.Destinations) == 0 {
		return fmt.Errorf("rules: destinations is empty")
	}
	for i, d := range s.Destinations {
		if strings.TrimSpace(d.Label) == "" {
			return fmt.Errorf("rules: destinations[%d] has no label", i)
		}
	}
	for i, o := range s.Origins {
		if strings.TrimSpace(o.Category) == "" {
			return fmt.Errorf("rules: origins[%d] has no category", i)
		}
	}
	return nil
}

func (s *Set) lowerKeywords() {
	for i := range s.ReportTypes {
		s.ReportTypes[i].Keywords = lowerAll(s.ReportTypes[i].Keywords)
	}
	for i := range s.Destinations {
		s.Destinations[i].Keywords = lowerAll(s.Destinations[i].Keywords)
	}
	for i := range s.Origins {
		s.Origins[i].Keywords = lowerAll(s.Origins[i].Keywords)
	}
	for i := range s.LifeStages {
		s.LifeStages[i].Keywords = lowerAll(s.LifeStages[i].Keywords)
	}
}

// ContainsAny reports whether lowered text contains any of the (already
// lowered) keywords.
func ContainsAny(loweredText string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(loweredText, kw) {
			return true
		}
	}
	return false
}

// ReportType classifies text by the first report type whose keywords occur in
// it, defaulting to rescue.
func (s *Set) ReportType(text string) domain.ReportType {
	lowered := strings.ToLower(text)
	for _, rule := range s.ReportTypes {
		if ContainsAny(lowered, rule.Keywords) {
			return rule.Type
		}
	}
	return domain.ReportRescue
}

// Destination returns the canonical label for free destination text. Text
// that matches no keyword is returned trimmed.
func (s *Set) Destination(text string) string {
	trimmed := strings.TrimSpace(text)
	lowered := strings.ToLower(trimmed)
	for _, rule := range s.Destinations {
		if ContainsAny(lowered, rule.Keywords) {
			return rule.Label
		}
	}
	return trimmed
}

// Origin returns the first origin category with a keyword present in text.
func (s *Set) Origin(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, rule := range s.Origins {
		if ContainsAny(lowered, rule.Keywords) {
			return rule.Category, true
		}
	}
	return "", false
}

// LifeStage recognizes a life-stage token in text.
func (s *Set) LifeStage(text string) (domain.LifeStage, bool) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return "", false
	}
	for _, rule := range s.LifeStages {
		if ContainsAny(lowered, rule.Keywords) {
			return rule.Stage, true
		}
	}
	return "", false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
