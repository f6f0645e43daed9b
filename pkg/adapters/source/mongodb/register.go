//go:build mongodb || all_adapters

package mongodb

import (
	"context"

	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Kind:        models.SourceKindMongoDB,
			DisplayName: "MongoDB",
			Description: "Connect to MongoDB 5+, Atlas clusters",
			Icon:        "mongodb",
		},
		Factory: func(ctx context.Context, params source.Params) (source.Adapter, error) {
			return NewAdapter(ctx, params)
		},
	})
}
