//go:build mysql || all_adapters

package mysql

import (
	"context"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Kind:        models.SourceKindMySQL,
			DisplayName: "MySQL",
			Description: "Connect to MySQL 8+, MariaDB, Aurora MySQL",
			Icon:        "mysql",
		},
		Factory: func(ctx context.Context, params source.Params) (source.Adapter, error) {
			return NewAdapter(ctx, params)
		},
	})
}
