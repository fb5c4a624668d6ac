package design

import (
	"fmt"

	"idstat/domain/core"
)

// Coding maps the levels of a categorical variable onto sum-to-zero (effects)
// contrast columns. Level j < k-1 is coded as the j-th unit vector; the last
// level is coded -1 in every column, so each column sums to zero over levels.
type Coding struct {
	Levels []string
	index  map[string]int
}

// SumCoding builds a coding over levels in the given order. Callers pass the
// canonical lexicographic order so contrast signs are reproducible.
func SumCoding(levels []string) Coding {
	index := make(map[string]int, len(levels))
	for i, l := range levels {
		index[l] = i
	}
	return Coding{Levels: append([]string(nil), levels...), index: index}
}

// Columns returns k-1.
func (c Coding) Columns() int {
	if len(c.Levels) == 0 {
		return 0
	}
	return len(c.Levels) - 1
}

// Row returns the contrast row of label.
func (c Coding) Row(label string) ([]float64, error) {
	idx, ok := c.index[label]
	if !ok {
		return nil, fmt.Errorf("unknown level %q", label)
	}
	row := make([]float64, c.Columns())
	if idx == len(c.Levels)-1 {
		for j := range row {
			row[j] = -1
		}
		return row, nil
	}
	row[idx] = 1
	return row, nil
}

// Term is a named block of design-matrix columns, each of length n.
type Term struct {
	Name    string
	Columns [][]float64
}

// DF returns the number of columns contributed by the term.
func (t Term) DF() int {
	return len(t.Columns)
}

// Intercept returns a single column of ones.
func Intercept(n int) Term {
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	return Term{Name: "intercept", Columns: [][]float64{ones}}
}

// MainEffect sum-codes labels against levels. A factor with fewer than two
// levels has no contrast to estimate and is reported as a singular design.
func MainEffect(name string, labels, levels []string) (Term, error) {
	if len(levels) < 2 {
		return Term{}, core.NewDesignSingularError(fmt.Sprintf("factor %s has %d level(s)", name, len(levels)))
	}
	coding := SumCoding(levels)
	cols := make([][]float64, coding.Columns())
	for j := range cols {
		cols[j] = make([]float64, len(labels))
	}
	for i, label := range labels {
		row, err := coding.Row(label)
		if err != nil {
			return Term{}, fmt.Errorf("factor %s: %w", name, err)
		}
		for j, v := range row {
			cols[j][i] = v
		}
	}
	return Term{Name: name, Columns: cols}, nil
}

// Interaction multiplies every column of a with every column of b.
func Interaction(name string, a, b Term) Term {
	cols := make([][]float64, 0, a.DF()*b.DF())
	for _, ca := range a.Columns {
		for _, cb := range b.Columns {
			col := make([]float64, len(ca))
			for i := range ca {
				col[i] = ca[i] * cb[i]
			}
			cols = append(cols, col)
		}
	}
	return Term{Name: name, Columns: cols}
}
