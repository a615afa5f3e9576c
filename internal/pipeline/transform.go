package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/covid-trends-service/internal/config"
	"github.com/couchcryptid/covid-trends-service/internal/dataset"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
	"github.com/couchcryptid/covid-trends-service/internal/source"
)

// DataSetTransformer implements Transformer for both input formats.
type DataSetTransformer struct {
	tables *domain.LookupTables
	logger *slog.Logger
}

// NewTransformer creates a DataSetTransformer resolving names and
// demographics through tables.
func NewTransformer(tables *domain.LookupTables, logger *slog.Logger) *DataSetTransformer {
	return &DataSetTransformer{
		tables: tables,
		logger: logger,
	}
}

func (t *DataSetTransformer) Transform(_ context.Context, p source.Payload) (*dataset.DataSet, error) {
	switch p.Format {
	case config.FormatCompact:
		return dataset.FromCompact(p.Regions, p.Cases, t.tables, t.logger)
	case config.FormatMatrix:
		return dataset.FromMatrix(p.Matrix, t.tables, t.logger)
	default:
		return nil, fmt.Errorf("unsupported data format %q", p.Format)
	}
}
