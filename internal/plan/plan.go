// Package plan describes a study: which metrics, languages, domain subsets
// and per-language caps to analyse, and how many times to repeat the draw.
package plan

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"idstat/domain/core"
	"idstat/domain/stats"
)

// Plan is the YAML study definition.
type Plan struct {
	Name          string                `json:"name" yaml:"name"`
	Metrics       []string              `json:"metrics" yaml:"metrics" validate:"required,min=1,dive,required"`
	Languages     []string              `json:"languages" yaml:"languages" validate:"required,min=2,dive,required"`
	DomainSubsets [][]string            `json:"domain_subsets" yaml:"domain_subsets" validate:"required,min=1,dive,min=1,dive,required"`
	Caps          []int                 `json:"caps" yaml:"caps" validate:"required,min=1,dive,gte=0"`
	Repetitions   int                   `json:"repetitions" yaml:"repetitions" validate:"gte=1"`
	Variants      []stats.DesignVariant `json:"variants" yaml:"variants" validate:"dive,oneof=art rank-type3"`
	Comparisons   []stats.Comparison    `json:"comparisons" yaml:"comparisons" validate:"dive,oneof=language_pairwise language_vs_rest cell_pairwise cell_vs_rest"`
}

// Unit is one (repetition, cap, metric, domain subset) combination.
type Unit struct {
	ID          core.UnitID
	Repetition  int
	Metric      string
	Languages   []string
	Domains     []string
	SampleCap   int
	Variants    []stats.DesignVariant
	Comparisons []stats.Comparison
}

// Default reproduces the reference study: nine languages, thirteen
// identifier metrics, the full and reduced domain subsets, three caps and
// ten repetitions.
func Default() Plan {
	return Plan{
		Name: "identifier-naming",
		Metrics: []string{
			"median_id_length",
			"median_id_soft_word_count",
			"id_duplicate_percentage",
			"num_single_letter_ids",
			"id_percent_abbreviations",
			"id_percent_dictionary_words",
			"num_conciseness_violations",
			"num_consistency_violations",
			"term_entropy",
			"median_id_lv_dist",
			"median_id_semantic_similarity",
			"median_word_concreteness",
			"context_coverage",
		},
		Languages: []string{"c", "clojure", "elixir", "erlang", "haskell", "java", "javascript", "ocaml", "python"},
		DomainSubsets: [][]string{
			{"ml", "infr", "db", "struct", "edu", "lang", "frontend", "backend", "build", "code", "cli", "comp", "game"},
			{"db", "lang", "game", "comp", "backend", "frontend", "ml"},
		},
		Caps:        []int{6300, 8400, 10600},
		Repetitions: 10,
		Variants:    []stats.DesignVariant{stats.DesignART},
		Comparisons: []stats.Comparison{stats.ComparisonLanguageVsRest},
	}
}

// Load reads a plan file. Keys missing from the file keep their defaults.
func Load(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML plan on top of Default and validates it.
func Parse(data []byte) (Plan, error) {
	p := Default()
	var overlay Plan
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Plan{}, core.NewValidationError("plan", err.Error())
	}
	p.merge(overlay)
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func (p *Plan) merge(o Plan) {
	if o.Name != "" {
		p.Name = o.Name
	}
	if len(o.Metrics) > 0 {
		p.Metrics = o.Metrics
	}
	if len(o.Languages) > 0 {
		p.Languages = o.Languages
	}
	if len(o.DomainSubsets) > 0 {
		p.DomainSubsets = o.DomainSubsets
	}
	if len(o.Caps) > 0 {
		p.Caps = o.Caps
	}
	if o.Repetitions > 0 {
		p.Repetitions = o.Repetitions
	}
	if o.Variants != nil {
		p.Variants = o.Variants
	}
	if o.Comparisons != nil {
		p.Comparisons = o.Comparisons
	}
}

var validate = validator.New()

// Validate checks the plan's shape.
func (p Plan) Validate() error {
	if err := validate.Struct(p); err != nil {
		return core.NewValidationError("plan", err.Error())
	}
	return nil
}

// Marshal renders the plan as YAML, e.g. for `idstat plan`.
func (p Plan) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// Units expands the plan in execution order: repetition, then caps from
// largest to smallest, then metrics, then domain subsets.
func (p Plan) Units() []Unit {
	caps := append([]int(nil), p.Caps...)
	sort.Sort(sort.Reverse(sort.IntSlice(caps)))

	units := make([]Unit, 0, p.Size())
	for rep := 0; rep < p.Repetitions; rep++ {
		for _, c := range caps {
			for _, metric := range p.Metrics {
				for _, domains := range p.DomainSubsets {
					units = append(units, Unit{
						ID:          core.NewUnitID(rep, metric, c, domains),
						Repetition:  rep,
						Metric:      metric,
						Languages:   append([]string(nil), p.Languages...),
						Domains:     append([]string(nil), domains...),
						SampleCap:   c,
						Variants:    append([]stats.DesignVariant(nil), p.Variants...),
						Comparisons: append([]stats.Comparison(nil), p.Comparisons...),
					})
				}
			}
		}
	}
	return units
}

// Size is the number of units Units returns.
func (p Plan) Size() int {
	return p.Repetitions * len(p.Caps) * len(p.Metrics) * len(p.DomainSubsets)
}

func (u Unit) String() string {
	return fmt.Sprintf("%s [%s] cap=%d", u.Metric, strings.Join(u.Domains, ","), u.SampleCap)
}
