package design

import (
	"idstat/domain/sample"
	"idstat/domain/stats"
)

// Factorial holds the sum-coded language, domain and interaction terms of a
// sample, with levels in canonical order.
type Factorial struct {
	N           int
	Language    Term
	Domain      Term
	Interaction Term
}

// NewFactorial codes the language×domain design of s.
func NewFactorial(s *sample.Sample) (*Factorial, error) {
	language, err := MainEffect(string(stats.FactorLanguage), s.LanguageLabels(), s.LanguageLevels())
	if err != nil {
		return nil, err
	}
	domain, err := MainEffect(string(stats.FactorDomain), s.DomainLabels(), s.DomainLevels())
	if err != nil {
		return nil, err
	}
	return &Factorial{
		N:           s.Len(),
		Language:    language,
		Domain:      domain,
		Interaction: Interaction("language:domain", language, domain),
	}, nil
}

// Term returns the columns of factor.
func (f *Factorial) Term(factor stats.Factor) Term {
	switch factor {
	case stats.FactorLanguage:
		return f.Language
	case stats.FactorDomain:
		return f.Domain
	default:
		return f.Interaction
	}
}

// Without returns intercept plus every effect of the full factorial model
// except factor.
func (f *Factorial) Without(factor stats.Factor) []Term {
	terms := []Term{Intercept(f.N)}
	for _, other := range stats.Factors() {
		if other != factor {
			terms = append(terms, f.Term(other))
		}
	}
	return terms
}

// Full returns intercept, both main effects and the interaction.
func (f *Factorial) Full() []Term {
	return []Term{Intercept(f.N), f.Language, f.Domain, f.Interaction}
}
