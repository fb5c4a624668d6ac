package sample

import (
	"math/rand"
)

// CapPerLanguage shuffles obs with rng and keeps at most perLanguageCap
// observations per language, preserving the shuffled order. A cap of zero or
// less keeps everything. The input slice is not modified.
func CapPerLanguage(obs []Observation, perLanguageCap int, rng *rand.Rand) []Observation {
	shuffled := append([]Observation(nil), obs...)
	if rng != nil {
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
	}
	if perLanguageCap <= 0 {
		return shuffled
	}

	kept := make([]Observation, 0, len(shuffled))
	counts := make(map[string]int)
	for _, o := range shuffled {
		if counts[o.Language] >= perLanguageCap {
			continue
		}
		counts[o.Language]++
		kept = append(kept, o)
	}
	return kept
}

// Filter keeps observations whose language and domain are both in the given
// sets. Empty sets match everything.
func Filter(obs []Observation, languages, domains []string) []Observation {
	langSet := toSet(languages)
	domainSet := toSet(domains)
	out := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if len(langSet) > 0 {
			if _, ok := langSet[o.Language]; !ok {
				continue
			}
		}
		if len(domainSet) > 0 {
			if _, ok := domainSet[o.Domain]; !ok {
				continue
			}
		}
		out = append(out, o)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
