//go:build sqlserver || all_adapters

package sqlserver

import (
	"context"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Kind:        models.SourceKindSQLServer,
			DisplayName: "SQL Server",
			Description: "Connect to SQL Server 2017+, Azure SQL Database",
			Icon:        "sqlserver",
		},
		Factory: func(ctx context.Context, params source.Params) (source.Adapter, error) {
			return NewAdapter(ctx, params)
		},
	})
}
