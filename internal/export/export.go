// Package export renders search rows as JSON or CSV documents.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/helixir/book-search-service/internal/domain"
)

// Format is an output document format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat parses a format name, case-insensitively. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", domain.NewValidationError("format", fmt.Sprintf("unsupported format %q", s))
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// csvRow fixes the CSV column order and names. Year is a string so that an
// unknown year renders as an empty cell.
type csvRow struct {
	Title   string `csv:"Title"`
	Authors string `csv:"Authors"`
	Year    string `csv:"Year"`
	URL     string `csv:"URL"`
	Subject string `csv:"Subject"`
}

// WriteCSV writes rows with a Title,Authors,Year,URL,Subject header.
func WriteCSV(w io.Writer, rows []domain.BookRow) error {
	out := make([]csvRow, len(rows))
	for i, r := range rows {
		out[i] = csvRow{
			Title:   r.Title,
			Authors: r.Authors,
			URL:     r.URL,
			Subject: r.Subject,
		}
		if r.Year != nil {
			out[i].Year = strconv.Itoa(*r.Year)
		}
	}
	if err := gocsv.Marshal(&out, w); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// WriteJSON writes rows as a JSON array.
func WriteJSON(w io.Writer, rows []domain.BookRow) error {
	if rows == nil {
		rows = []domain.BookRow{}
	}
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		return fmt.Errorf("writing json: %w", err)
	}
	return nil
}

// Write renders rows in the given format.
func Write(w io.Writer, format Format, rows []domain.BookRow) error {
	if format == FormatCSV {
		return WriteCSV(w, rows)
	}
	return WriteJSON(w, rows)
}

// CSVFilename names the CSV download after the requested subjects,
// e.g. books_Marketing_Chemistry.csv.
func CSVFilename(subjects []string) string {
	return "books_" + strings.Join(subjects, "_") + ".csv"
}

// ContentDisposition returns an attachment header value for filename,
// quoting or encoding it as needed.
func ContentDisposition(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
