// Package export renders tabular progress reports as CSV, PDF or XLSX.
package export

import "strings"

// Dataset defines tabular export content.
type Dataset struct {
	Title string
	// Summary lines are rendered above the table as "label: value".
	Summary []SummaryLine
	Headers []string
	Rows    []map[string]string
}

// SummaryLine is one labelled value shown before the table.
type SummaryLine struct {
	Label string
	Value string
}

// sanitizeCell stops spreadsheet applications from evaluating user text as a formula.
func sanitizeCell(v string) string {
	if v == "" {
		return v
	}
	if strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}
