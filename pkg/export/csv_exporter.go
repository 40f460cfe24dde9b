package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// CommentPrefix starts the preamble lines carrying the title and subtitle.
// Readers skip them with csv.Reader.Comment = '#'.
const CommentPrefix = '#'

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render writes an optional comment preamble followed by the header and one line per row.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	for _, line := range []string{data.Title, data.Subtitle} {
		if line = preambleLine(line); line != "" {
			fmt.Fprintf(buf, "%c %s\n", CommentPrefix, line)
		}
	}

	writer := csv.NewWriter(buf)
	if err := writeRecord(buf, writer, data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writeRecord(buf, writer, record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// writeRecord quotes a leading field that would otherwise read back as a comment line.
func writeRecord(buf *bytes.Buffer, writer *csv.Writer, record []string) error {
	if len(record) == 0 || !strings.HasPrefix(record[0], string(CommentPrefix)) {
		return writer.Write(record)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	buf.WriteString(`"` + strings.ReplaceAll(record[0], `"`, `""`) + `"`)
	if len(record) == 1 {
		buf.WriteString("\n")
		return nil
	}
	buf.WriteByte(',')
	return writer.Write(record[1:])
}

// preambleLine keeps a comment on a single line.
func preambleLine(raw string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(raw))
}
