package sample

import (
	"fmt"
	"math"
	"sort"

	"idstat/domain/core"
)

// Observation is one metric value labeled with its source language and
// application domain.
type Observation struct {
	Value    float64 `json:"value" db:"value"`
	Language string  `json:"language" db:"language"`
	Domain   string  `json:"domain" db:"domain"`
}

// CellLabel names the language×domain cell of an observation.
func (o Observation) CellLabel() string {
	return CellLabel(o.Language, o.Domain)
}

// CellLabel joins a language and a domain into a cell label.
func CellLabel(language, domain string) string {
	return language + ":" + domain
}

// Sample is an immutable collection of observations for one metric, drawn
// under a per-language cap from a domain subset.
type Sample struct {
	metric       string
	languages    []string
	domains      []string
	sampleCap    int
	observations []Observation

	languageLevels []string
	domainLevels   []string
}

// New copies obs into a Sample. Languages and domains are the requested sets;
// the levels actually present are derived from the observations.
func New(metric string, languages, domains []string, sampleCap int, obs []Observation) (*Sample, error) {
	for i, o := range obs {
		if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
			return nil, fmt.Errorf("%w: observation %d has non-finite value", core.ErrInvalidSample, i)
		}
		if o.Language == "" || o.Domain == "" {
			return nil, fmt.Errorf("%w: observation %d is missing a label", core.ErrInvalidSample, i)
		}
	}

	s := &Sample{
		metric:       metric,
		languages:    append([]string(nil), languages...),
		domains:      append([]string(nil), domains...),
		sampleCap:    sampleCap,
		observations: append([]Observation(nil), obs...),
	}
	s.languageLevels = distinctSorted(s.observations, func(o Observation) string { return o.Language })
	s.domainLevels = distinctSorted(s.observations, func(o Observation) string { return o.Domain })
	return s, nil
}

func distinctSorted(obs []Observation, key func(Observation) string) []string {
	seen := make(map[string]struct{})
	for _, o := range obs {
		seen[key(o)] = struct{}{}
	}
	levels := make([]string, 0, len(seen))
	for k := range seen {
		levels = append(levels, k)
	}
	sort.Strings(levels)
	return levels
}

func (s *Sample) Metric() string           { return s.metric }
func (s *Sample) SampleCap() int           { return s.sampleCap }
func (s *Sample) Len() int                 { return len(s.observations) }
func (s *Sample) At(i int) Observation     { return s.observations[i] }
func (s *Sample) Languages() []string      { return append([]string(nil), s.languages...) }
func (s *Sample) Domains() []string        { return append([]string(nil), s.domains...) }
func (s *Sample) LanguageLevels() []string { return append([]string(nil), s.languageLevels...) }
func (s *Sample) DomainLevels() []string   { return append([]string(nil), s.domainLevels...) }

// Observations returns a copy of the observations.
func (s *Sample) Observations() []Observation {
	return append([]Observation(nil), s.observations...)
}

// Values returns the metric values in observation order.
func (s *Sample) Values() []float64 {
	values := make([]float64, len(s.observations))
	for i, o := range s.observations {
		values[i] = o.Value
	}
	return values
}

// LanguageLabels returns the language label of each observation.
func (s *Sample) LanguageLabels() []string {
	return s.labels(func(o Observation) string { return o.Language })
}

// DomainLabels returns the domain label of each observation.
func (s *Sample) DomainLabels() []string {
	return s.labels(func(o Observation) string { return o.Domain })
}

// CellLabels returns the language×domain cell label of each observation.
func (s *Sample) CellLabels() []string {
	return s.labels(Observation.CellLabel)
}

func (s *Sample) labels(key func(Observation) string) []string {
	out := make([]string, len(s.observations))
	for i, o := range s.observations {
		out[i] = key(o)
	}
	return out
}

// CellLevels returns the sorted distinct cells present in the sample.
func (s *Sample) CellLevels() []string {
	return distinctSorted(s.observations, Observation.CellLabel)
}

// GroupIndices maps every distinct key to the observation indices carrying it,
// indices in ascending order.
func (s *Sample) GroupIndices(key func(Observation) string) map[string][]int {
	groups := make(map[string][]int)
	for i, o := range s.observations {
		k := key(o)
		groups[k] = append(groups[k], i)
	}
	return groups
}

// CountsByLanguage returns the number of observations per language.
func (s *Sample) CountsByLanguage() map[string]int {
	counts := make(map[string]int, len(s.languageLevels))
	for _, o := range s.observations {
		counts[o.Language]++
	}
	return counts
}

// Hash fingerprints the sample contents.
func (s *Sample) Hash() core.SampleHash {
	return core.ComputeSampleHash(s.Values(), s.LanguageLabels(), s.DomainLabels())
}
