package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"idstat/adapters/stats/normality"
	"idstat/domain/run"
)

// DefaultTopN is how many deviations a report lists when TopN is unset.
const DefaultTopN = 20

// Document is everything a study report can show. Empty sections are
// omitted.
type Document struct {
	Title      string
	Alpha      float64
	TopN       int
	ANOVA      []run.ANOVARecord
	Deviations []run.DeviationRecord
	Failures   []run.FailureRecord
	Normality  []normality.Summary
}

func (d Document) topN() int {
	if d.TopN <= 0 {
		return DefaultTopN
	}
	return d.TopN
}

func (d Document) alpha() float64 {
	if d.Alpha <= 0 || d.Alpha >= 1 {
		return 0.05
	}
	return d.Alpha
}

// Write renders the document as console tables.
func Write(w io.Writer, d Document) {
	write(w, StyleConsole, d)
}

// Markdown renders the document as Markdown with pipe tables.
func Markdown(d Document) []byte {
	var buf bytes.Buffer
	write(&buf, StyleMarkdown, d)
	return buf.Bytes()
}

// HTML renders the Markdown form of the document as a complete HTML page.
func HTML(d Document) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: d.Title,
	})
	return markdown.ToHTML(Markdown(d), p, renderer)
}

func write(w io.Writer, style Style, d Document) {
	heading := func(level int, text string) {
		if style == StyleMarkdown {
			fmt.Fprintf(w, "%s %s\n\n", "########"[:level], text)
			return
		}
		fmt.Fprintf(w, "%s\n\n", text)
	}
	gap := func() { fmt.Fprintln(w) }

	if d.Title != "" {
		heading(1, d.Title)
	}

	if len(d.ANOVA) > 0 {
		heading(2, "ANOVA")
		fmt.Fprintf(w, "%d runs, α = %g\n\n", len(d.ANOVA), d.alpha())
		WriteANOVASummary(w, style, AggregateANOVA(d.ANOVA, d.alpha()))
		gap()
	}

	if len(d.Deviations) > 0 {
		top := TopDeviations(d.Deviations, d.topN())
		heading(2, fmt.Sprintf("Top %d deviations", len(top)))
		WriteDeviations(w, style, top)
		gap()
	}

	if len(d.Normality) > 0 {
		heading(2, "Normality")
		WriteNormality(w, style, d.Normality)
		gap()
	}

	if len(d.Failures) > 0 {
		heading(2, fmt.Sprintf("Failures (%d)", len(d.Failures)))
		WriteFailures(w, style, d.Failures)
		gap()
	}
}
