package analysis

import (
	"context"
	"fmt"

	"github.com/sawpanic/pivotscope/internal/data/history"
	"github.com/sawpanic/pivotscope/internal/domain/series"
)

// DataProvider supplies the daily close history for a run
type DataProvider interface {
	LoadHistory(ctx context.Context) ([]series.PriceRow, error)
	Source() string
}

// FileDataProvider reads history from a CSV file
type FileDataProvider struct {
	path   string
	reader *history.CSVReader
}

// NewFileDataProvider creates a provider for the CSV file at path
func NewFileDataProvider(path string) *FileDataProvider {
	return &FileDataProvider{
		path:   path,
		reader: history.NewCSVReader(),
	}
}

// LoadHistory reads and validates the CSV file
func (p *FileDataProvider) LoadHistory(ctx context.Context) ([]series.PriceRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := p.reader.LoadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return rows, nil
}

// Source returns the file path
func (p *FileDataProvider) Source() string {
	return p.path
}

// StaticDataProvider serves rows already in memory
type StaticDataProvider struct {
	Name string
	Rows []series.PriceRow
}

// LoadHistory returns the rows
func (p StaticDataProvider) LoadHistory(ctx context.Context) ([]series.PriceRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.Rows) == 0 {
		return nil, history.ErrEmpty
	}
	return p.Rows, nil
}

// Source returns the provider name
func (p StaticDataProvider) Source() string {
	return p.Name
}
