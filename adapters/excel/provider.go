package excel

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"idstat/domain/core"
	"idstat/domain/sample"
	"idstat/ports"
)

// WorkbookSampleProvider serves observations read from a spreadsheet. The
// file is parsed once on first use.
type WorkbookSampleProvider struct {
	config Config
	reader *DataReader
	logger *zap.Logger

	once       sync.Once
	loadErr    error
	population map[string][]sample.Observation
	skipped    int
}

var (
	_ ports.SampleProvider = (*WorkbookSampleProvider)(nil)
	_ ports.MetricCatalog  = (*WorkbookSampleProvider)(nil)
)

// NewWorkbookSampleProvider creates a provider for cfg.FilePath.
func NewWorkbookSampleProvider(cfg Config, logger *zap.Logger) *WorkbookSampleProvider {
	defaults := DefaultConfig(cfg.FilePath)
	if cfg.LanguageColumn == "" {
		cfg.LanguageColumn = defaults.LanguageColumn
	}
	if cfg.DomainColumn == "" {
		cfg.DomainColumn = defaults.DomainColumn
	}
	if cfg.MetricColumn == "" {
		cfg.MetricColumn = defaults.MetricColumn
	}
	if cfg.ValueColumn == "" {
		cfg.ValueColumn = defaults.ValueColumn
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkbookSampleProvider{
		config: cfg,
		reader: NewDataReader(cfg.FilePath, cfg.Sheet, logger),
		logger: logger,
	}
}

func (p *WorkbookSampleProvider) load() error {
	p.once.Do(func() {
		data, err := p.reader.ReadData()
		if err != nil {
			p.loadErr = err
			return
		}
		p.population, p.skipped, p.loadErr = Observations(data, p.config)
		if p.loadErr == nil {
			p.logger.Info("observations loaded",
				zap.String("path", p.config.FilePath),
				zap.Int("metrics", len(p.population)),
				zap.Int("skipped_rows", p.skipped),
			)
		}
	})
	return p.loadErr
}

// Sample implements ports.SampleProvider
func (p *WorkbookSampleProvider) Sample(ctx context.Context, req ports.SampleRequest) ([]sample.Observation, error) {
	if err := p.load(); err != nil {
		return nil, err
	}
	obs, ok := p.population[req.Metric]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrMetricNotFound, req.Metric)
	}
	filtered := sample.Filter(obs, req.Languages, req.Domains)
	return sample.CapPerLanguage(filtered, req.PerLanguageCap, rand.New(rand.NewSource(req.Seed))), nil
}

// Metrics implements ports.MetricCatalog
func (p *WorkbookSampleProvider) Metrics(ctx context.Context) ([]string, error) {
	if err := p.load(); err != nil {
		return nil, err
	}
	metrics := make([]string, 0, len(p.population))
	for m := range p.population {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)
	return metrics, nil
}

var idColumns = map[string]bool{"id": true, "function_id": true, "repo_id": true}

// Observations groups the rows of data by metric. Rows with a missing label
// or a value that does not parse to a finite number are skipped and counted.
func Observations(data *ExcelData, cfg Config) (map[string][]sample.Observation, int, error) {
	has := make(map[string]bool, len(data.Headers))
	for _, h := range data.Headers {
		has[h] = true
	}
	lang, domain := strings.ToLower(cfg.LanguageColumn), strings.ToLower(cfg.DomainColumn)
	if !has[lang] || !has[domain] {
		return nil, 0, core.NewValidationError("input", fmt.Sprintf("columns %q and %q are required", lang, domain))
	}

	metricCol, valueCol := strings.ToLower(cfg.MetricColumn), strings.ToLower(cfg.ValueColumn)
	long := has[metricCol] && has[valueCol]

	var metricCols []string
	if !long {
		for _, h := range data.Headers {
			if h != "" && h != lang && h != domain && !idColumns[h] {
				metricCols = append(metricCols, h)
			}
		}
		if len(metricCols) == 0 {
			return nil, 0, core.NewValidationError("input", "no metric columns found")
		}
	}

	population := make(map[string][]sample.Observation)
	skipped := 0
	add := func(row RawRowData, metric, raw string) {
		value, err := strconv.ParseFloat(raw, 64)
		if metric == "" || row[lang] == "" || row[domain] == "" || err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			skipped++
			return
		}
		population[metric] = append(population[metric], sample.Observation{
			Value:    value,
			Language: row[lang],
			Domain:   row[domain],
		})
	}

	for _, row := range data.Rows {
		if long {
			add(row, row[metricCol], row[valueCol])
			continue
		}
		for _, m := range metricCols {
			add(row, m, row[m])
		}
	}
	return population, skipped, nil
}
