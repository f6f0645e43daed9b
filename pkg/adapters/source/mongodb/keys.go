//go:build mongodb || all_adapters

package mongodb

import (
	"github.com/anshumax/semantiqa-sub001/pkg/adapters/source"
)

// ForeignKeyTiers returns nil: MongoDB has no foreign key concept, and an
// empty tier list tells callers to record that instead of probing.
func (a *Adapter) ForeignKeyTiers() []source.ForeignKeyTier {
	return nil
}
