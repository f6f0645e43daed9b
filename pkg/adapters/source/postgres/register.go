//go:build postgres || all_adapters

package postgres

import (
	"context"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Kind:        models.SourceKindPostgres,
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+, Aurora PostgreSQL, Supabase",
			Icon:        "postgres",
		},
		Factory: func(ctx context.Context, params source.Params) (source.Adapter, error) {
			return NewAdapter(ctx, params)
		},
	})
}
