package matcher

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Mode selects the acceptance threshold
type Mode int

const (
	// ModeBatch ranks several results from one source
	ModeBatch Mode = iota
	// ModeBest picks a single match out of a noisy result set
	ModeBest
)

func (m Mode) String() string {
	if m == ModeBest {
		return "best"
	}
	return "batch"
}

type Thresholds struct {
	Batch int `yaml:"batch"`
	Best  int `yaml:"best"`
}

// Demographic is a group of title terms that implies a target audience
type Demographic struct {
	Name    string   `yaml:"name"`
	Penalty int      `yaml:"penalty"`
	Terms   []string `yaml:"terms"`
}

// Rules holds every weight and term list the scorer uses
type Rules struct {
	KeywordWeight  int           `yaml:"keyword_weight"`
	PhraseBonus    int           `yaml:"phrase_bonus"`
	CategoryBonus  int           `yaml:"category_bonus"`
	ImageBonus     int           `yaml:"image_bonus"`
	PriceBonus     int           `yaml:"price_bonus"`
	Thresholds     Thresholds    `yaml:"thresholds"`
	ExclusionTerms []string      `yaml:"exclusion_terms"`
	CategoryTerms  []string      `yaml:"category_terms"`
	Demographics   []Demographic `yaml:"demographics"`
}

// DefaultRules returns the embedded rule set
func DefaultRules() Rules {
	r, err := decodeRules(defaultRulesYAML, Rules{})
	if err != nil {
		panic(fmt.Sprintf("matcher: embedded rules are invalid: %v", err))
	}
	return r
}

// LoadRules reads a rule file. An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes YAML on top of the defaults. Scalars missing from the
// document keep their default, a list present in the document replaces the default list.
func ParseRules(data []byte) (Rules, error) {
	return decodeRules(data, DefaultRules())
}

func decodeRules(data []byte, base Rules) (Rules, error) {
	r := base
	r.ExclusionTerms, r.CategoryTerms, r.Demographics = nil, nil, nil
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules: %w", err)
	}
	if r.ExclusionTerms == nil {
		r.ExclusionTerms = base.ExclusionTerms
	}
	if r.CategoryTerms == nil {
		r.CategoryTerms = base.CategoryTerms
	}
	if r.Demographics == nil {
		r.Demographics = base.Demographics
	}

	r.normalize()
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func (r *Rules) normalize() {
	r.ExclusionTerms = lowerAll(r.ExclusionTerms)
	r.CategoryTerms = lowerAll(r.CategoryTerms)
	for i := range r.Demographics {
		r.Demographics[i].Terms = lowerAll(r.Demographics[i].Terms)
	}
}

// Validate checks that weights are usable
func (r Rules) Validate() error {
	if r.KeywordWeight <= 0 {
		return fmt.Errorf("keyword_weight must be positive")
	}
	if r.PhraseBonus < 0 || r.CategoryBonus < 0 || r.ImageBonus < 0 || r.PriceBonus < 0 {
		return fmt.Errorf("bonuses must not be negative")
	}
	if r.Thresholds.Batch <= 0 || r.Thresholds.Best <= 0 {
		return fmt.Errorf("thresholds must be positive")
	}
	for _, d := range r.Demographics {
		if d.Penalty > 0 {
			return fmt.Errorf("demographic %q: penalty must not be positive", d.Name)
		}
		if len(d.Terms) == 0 {
			return fmt.Errorf("demographic %q has no terms", d.Name)
		}
	}
	return nil
}

// Threshold returns the minimum accepted score for a mode
func (r Rules) Threshold(m Mode) int {
	if m == ModeBest {
		return r.Thresholds.Best
	}
	return r.Thresholds.Batch
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
