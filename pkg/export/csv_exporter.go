package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Section is a labeled dataset inside a report.
type Section struct {
	Name    string
	Dataset Dataset
}

// Report groups a titled sequence of sections for export.
type Report struct {
	Title    string
	Sections []Section
}

// CSVExporter renders datasets and sectioned reports into CSV bytes.
type CSVExporter struct {
	delimiter rune
}

// NewCSVExporter builds a CSV exporter with the default comma delimiter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{delimiter: ','}
}

// NewCSVExporterWithDelimiter builds a CSV exporter with a custom delimiter.
func NewCSVExporterWithDelimiter(delimiter rune) *CSVExporter {
	if delimiter == 0 {
		delimiter = ','
	}
	return &CSVExporter{delimiter: delimiter}
}

// Render produces CSV encoded bytes for a single dataset. encoding/csv
// quotes fields containing the delimiter, so free-text values stay
// parseable.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.Comma = e.delimiter
	if err := e.writeDataset(writer, data); err != nil {
		return nil, err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderReport produces a flattened delimited rendering: each section is
// introduced by a single-cell label row, followed by its headers and rows,
// separated from the next section by a blank line.
func (e *CSVExporter) RenderReport(report Report) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.Comma = e.delimiter
	for i, section := range report.Sections {
		if i > 0 {
			if err := writer.Write([]string{}); err != nil {
				return nil, fmt.Errorf("write section separator: %w", err)
			}
		}
		if err := writer.Write([]string{section.Name}); err != nil {
			return nil, fmt.Errorf("write section label: %w", err)
		}
		if err := e.writeDataset(writer, section.Dataset); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *CSVExporter) writeDataset(writer *csv.Writer, data Dataset) error {
	if len(data.Headers) == 0 {
		return fmt.Errorf("csv requires at least one header")
	}
	if err := writer.Write(data.Headers); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	return nil
}
