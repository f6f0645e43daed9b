package source

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// AdapterInfo describes a registered adapter kind for API discovery.
type AdapterInfo struct {
	Kind        string `json:"kind"`         // "postgres", "mysql", "mongodb"
	DisplayName string `json:"display_name"` // "PostgreSQL", "MongoDB"
	Description string `json:"description"`  // "Connect to PostgreSQL 12+"
	Icon        string `json:"icon"`         // Icon identifier for UI
}

// Params carries everything a factory needs to open a session.
type Params struct {
	SourceID     uuid.UUID
	Config       models.SourceConfig
	QueryTimeout time.Duration
	SampleSize   int // document sources: sample size for field inference
	Logger       *zap.Logger
}

// Registration contains info plus the factory for creating adapter sessions.
type Registration struct {
	Info    AdapterInfo
	Factory func(ctx context.Context, params Params) (Adapter, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Kind] = reg
}

// RegisteredAdapters returns info for all compiled-in adapter kinds.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// GetFactory returns the factory for a source kind.
// Returns nil if the kind is not registered.
func GetFactory(kind string) func(ctx context.Context, params Params) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[kind]; ok {
		return reg.Factory
	}
	return nil
}

// IsRegistered checks if an adapter kind is available.
func IsRegistered(kind string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[kind]
	return ok
}
