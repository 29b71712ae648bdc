// Package preview parses delimited text files incrementally, returning a
// bounded preview plus the true total row count. Rows beyond the preview
// window are counted but never materialized, so arbitrarily large files
// stay cheap.
package preview

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/Broccolito/PilotR/pkg/response"
)

const sniffSampleSize = 1024

// Table is a bounded preview of a delimited file.
type Table struct {
	Header        []string   `json:"header"`
	Rows          [][]string `json:"rows"`
	TotalRows     int        `json:"total_rows"`
	DisplayedRows int        `json:"displayed_rows"`
	Delimiter     string     `json:"delimiter"`
	Truncated     bool       `json:"truncated"`
}

// File streams path as delimited text. delimiter accepts a literal
// single character, "tab" or "\t" for tab, and "auto" to sniff the
// separator from an initial sample. The first record is the header.
func File(path, delimiter string, maxRows int) (*Table, *response.Error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, response.Errf(response.CodePreviewError, "Failed to preview table: %v", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)

	sep, rerr := resolveDelimiter(br, delimiter)
	if rerr != nil {
		return nil, rerr
	}

	reader := csv.NewReader(br)
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, response.Errf(response.CodeEmptyFile, "CSV file is empty")
		}
		return nil, previewFailed(err, sep)
	}

	table := &Table{Header: header, Rows: [][]string{}, Delimiter: string(sep)}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, previewFailed(err, sep)
		}
		table.TotalRows++
		if len(table.Rows) < maxRows {
			table.Rows = append(table.Rows, row)
		}
	}

	table.DisplayedRows = len(table.Rows)
	table.Truncated = table.TotalRows > maxRows
	return table, nil
}

func previewFailed(err error, sep rune) *response.Error {
	return response.Errf(response.CodePreviewError, "Failed to preview table: %v", err).
		WithHints("Check the file format", "Try a different delimiter (current: "+string(sep)+")")
}

func resolveDelimiter(br *bufio.Reader, delimiter string) (rune, *response.Error) {
	switch delimiter {
	case "tab", "\\t", "\t":
		return '\t', nil
	case "auto":
		sample, err := br.Peek(sniffSampleSize)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, response.Errf(response.CodePreviewError, "Failed to sample file: %v", err)
		}
		return sniff(string(sample)), nil
	case "":
		return ',', nil
	}
	return []rune(delimiter)[0], nil
}

// sniff picks the candidate separator occurring most often on the first
// sampled line, defaulting to comma.
func sniff(sample string) rune {
	if i := strings.IndexByte(sample, '\n'); i >= 0 {
		sample = sample[:i]
	}

	best := ','
	bestCount := 0
	for _, candidate := range []rune{',', '\t', ';', '|'} {
		if n := strings.Count(sample, string(candidate)); n > bestCount {
			best = candidate
			bestCount = n
		}
	}
	return best
}
