package excel

// Config locates observations in a workbook or CSV file.
//
// Two layouts are accepted. Long: one row per observation with metric,
// language, domain and value columns. Wide: language and domain columns plus
// one numeric column per metric.
type Config struct {
	FilePath       string `json:"file_path"`
	Sheet          string `json:"sheet"`
	LanguageColumn string `json:"language_column"`
	DomainColumn   string `json:"domain_column"`
	MetricColumn   string `json:"metric_column"`
	ValueColumn    string `json:"value_column"`
}

// DefaultConfig returns the column names written by ExportObservations.
func DefaultConfig(path string) Config {
	return Config{
		FilePath:       path,
		LanguageColumn: "language",
		DomainColumn:   "domain",
		MetricColumn:   "metric",
		ValueColumn:    "value",
	}
}
