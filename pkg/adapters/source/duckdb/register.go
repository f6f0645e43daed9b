//go:build duckdb || all_adapters

package duckdb

import (
	"context"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Kind:        models.SourceKindDuckDB,
			DisplayName: "DuckDB",
			Description: "Attach local DuckDB database files",
			Icon:        "duckdb",
		},
		Factory: func(ctx context.Context, params source.Params) (source.Adapter, error) {
			return NewAdapter(ctx, params)
		},
	})
}
