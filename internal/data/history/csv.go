package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/pivotscope/internal/domain/series"
)

// ErrEmpty is returned when a history holds no data rows
var ErrEmpty = errors.New("history contains no rows")

// CSVReader reads daily close history from CSV
type CSVReader struct {
	dateFormats []string
}

// NewCSVReader creates a new CSV reader
func NewCSVReader() *CSVReader {
	return &CSVReader{
		dateFormats: []string{
			"2006-01-02",
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
			"2006/01/02",
		},
	}
}

// LoadFile reads the CSV file at path
func (r *CSVReader) LoadFile(path string) ([]series.PriceRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	rows, err := r.Read(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// Read parses date,close records. A header row is optional; when present
// it may name the columns in any order. Unparsable closes become missing
// bars. Dates must be strictly increasing.
func (r *CSVReader) Read(in io.Reader) ([]series.PriceRow, error) {
	csvReader := csv.NewReader(in)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true
	csvReader.Comment = '#'

	dateCol, closeCol := 0, 1
	var rows []series.PriceRow

	for first := true; ; first = false {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		line, _ := csvReader.FieldPos(0)

		if first {
			if d, c, ok := mapColumns(record); ok {
				dateCol, closeCol = d, c
				continue
			}
		}

		if len(record) <= max(dateCol, closeCol) {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, max(dateCol, closeCol)+1, len(record))
		}

		date, err := r.parseDate(record[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if n := len(rows); n > 0 {
			prev := rows[n-1].Date
			switch {
			case date.Equal(prev):
				return nil, fmt.Errorf("line %d: duplicate date %s", line, date.Format("2006-01-02"))
			case date.Before(prev):
				return nil, fmt.Errorf("line %d: date %s before previous %s", line, date.Format("2006-01-02"), prev.Format("2006-01-02"))
			}
		}

		rows = append(rows, series.PriceRow{Date: date, Close: parseClose(record[closeCol])})
	}

	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	return rows, nil
}

// mapColumns recognizes a header row and locates the date and close columns
func mapColumns(header []string) (int, int, bool) {
	dateCol, closeCol := -1, -1
	for i, column := range header {
		switch normalizeColumnName(column) {
		case "date":
			if dateCol < 0 {
				dateCol = i
			}
		case "close":
			if closeCol < 0 {
				closeCol = i
			}
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return 0, 0, false
	}
	return dateCol, closeCol, true
}

func normalizeColumnName(column string) string {
	switch strings.ToLower(strings.TrimSpace(column)) {
	case "date", "day", "time", "ts", "timestamp", "datetime":
		return "date"
	case "close", "price", "adj_close", "adj close", "close_usd":
		return "close"
	default:
		return ""
	}
}

func (r *CSVReader) parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, format := range r.dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", value)
}

func parseClose(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Load is a convenience wrapper around NewCSVReader().LoadFile(path)
func Load(path string) ([]series.PriceRow, error) {
	return NewCSVReader().LoadFile(path)
}

// Write emits rows as a date,close CSV with a header
func Write(w io.Writer, rows []series.PriceRow) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{"date", "close"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		record := []string{row.Date.Format("2006-01-02"), strconv.FormatFloat(row.Close, 'f', -1, 64)}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
