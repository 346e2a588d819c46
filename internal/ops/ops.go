package ops

import (
	"context"

	"github.com/hpungsan/kin/internal/widget"
)

// Pagination limits
const (
	DefaultStatsLimit = 20
	MaxStatsLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Host is the surface host the interactive operations drive.
// *widget.Host implements it.
type Host interface {
	Refresh(ctx context.Context, surfaceID string) (widget.Result, error)
	Engage(ctx context.Context, surfaceID, contactID string) (widget.EngageResult, error)
	SetLastShown(surfaceID, contactID string)
}

// clampLimit applies the default and maximum page size.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
