// Package probe executes introspection queries in descending privilege
// tiers, converting permission failures into warnings and falling through
// to the next tier instead of aborting the crawl.
package probe

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/anshumax/semantiqa-sub001/pkg/apperrors"
	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// Tier is one introspection strategy. Feature names the source-side surface
// it needs (e.g. "pg_stat_user_tables"); Remediation tells an operator how
// to grant it.
type Tier[T any] struct {
	Feature     string
	Remediation string
	Run         func(ctx context.Context) (T, error)
}

// Outcome reports which tier produced the data and what was denied along
// the way. TierIndex is -1 when every tier was denied.
type Outcome[T any] struct {
	Data      T
	TierIndex int
	Warnings  []models.Warning
}

// Run executes tiers in order and stops at the first success.
//
// A permission denial appends a Warning (severity "warning" for the first
// denial in this run, "info" for subsequent ones) and falls through. Any
// other error is fatal and propagates. When every tier is denied, the
// outcome carries the zero value plus a single info warning naming the
// whole capability as unavailable, with the top tier's remediation as the
// grant hint.
func Run[T any](ctx context.Context, logger *zap.Logger, capability string, tiers []Tier[T]) (Outcome[T], error) {
	var zero Outcome[T]
	zero.TierIndex = -1

	if len(tiers) == 0 {
		return zero, fmt.Errorf("no tiers configured for capability %q", capability)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var warnings []models.Warning
	for i, tier := range tiers {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("capability %q cancelled: %w", capability, err)
		}

		data, err := tier.Run(ctx)
		if err == nil {
			return Outcome[T]{Data: data, TierIndex: i, Warnings: warnings}, nil
		}

		if !errors.Is(err, apperrors.ErrPermissionDenied) {
			return zero, fmt.Errorf("capability %q tier %s failed: %w", capability, tier.Feature, err)
		}

		severity := models.SeverityInfo
		if len(warnings) == 0 {
			severity = models.SeverityWarning
		}
		warnings = append(warnings, models.Warning{
			Severity:         severity,
			Feature:          tier.Feature,
			Message:          fmt.Sprintf("access to %s was denied", tier.Feature),
			Remediation:      tier.Remediation,
			PermissionDenied: true,
		})
		logger.Debug("introspection tier denied, falling through",
			zap.String("capability", capability),
			zap.String("feature", tier.Feature),
			zap.Int("tier", i+1))
	}

	// Every tier denied: collapse to one capability-level warning so the
	// caller sees a single actionable entry instead of per-tier noise.
	zero.Warnings = []models.Warning{{
		Severity:         models.SeverityInfo,
		Feature:          capability,
		Message:          fmt.Sprintf("%s is unavailable: every introspection tier was denied", capability),
		Remediation:      tiers[0].Remediation,
		PermissionDenied: true,
	}}
	logger.Info("capability unavailable on this source",
		zap.String("capability", capability),
		zap.Int("tiers_attempted", len(tiers)))
	return zero, nil
}
