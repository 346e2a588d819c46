package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/kin/internal/contact"
	"github.com/hpungsan/kin/internal/widget"
)

// NextInput contains parameters for the Next operation.
type NextInput struct {
	Surface string // default: "default"
	// LastShown seeds the exclusion for callers without a long-lived host.
	LastShown string
}

// NextOutput is the surface state after one selection cycle.
type NextOutput struct {
	Status      widget.Status    `json:"status"`
	Surface     string           `json:"surface"`
	Contact     *contact.Contact `json:"contact,omitempty"`
	Placeholder bool             `json:"placeholder"`
	CycleID     string           `json:"cycle_id,omitempty"`
	Proposed    int64            `json:"proposed"`
	Engaged     int64            `json:"engaged"`
	Ratio       float64          `json:"ratio"`
	Rounds      int              `json:"rounds,omitempty"`
	Forced      bool             `json:"forced,omitempty"`
}

// Next runs a selection cycle on a surface.
// A skipped cycle is not an error; the output then carries the current view.
func Next(ctx context.Context, host Host, input NextInput) (*NextOutput, error) {
	surface := strings.TrimSpace(input.Surface)
	if surface == "" {
		surface = widget.DefaultSurface
	}
	if last := strings.TrimSpace(input.LastShown); last != "" {
		host.SetLastShown(surface, last)
	}

	res, err := host.Refresh(ctx, surface)
	if err != nil {
		return nil, err
	}
	return nextOutput(surface, res), nil
}

// ViewOutput describes a surface's current view without running a cycle.
func ViewOutput(surface string, v widget.View) *NextOutput {
	status := widget.StatusRendered
	if v.Empty {
		status = widget.StatusEmpty
	}
	return nextOutput(surface, widget.Result{Status: status, View: v})
}

func nextOutput(surface string, res widget.Result) *NextOutput {
	out := &NextOutput{
		Status:      res.Status,
		Surface:     surface,
		Contact:     res.View.Contact,
		Placeholder: res.View.Placeholder,
	}
	if sel := res.Selection; sel != nil {
		out.CycleID = sel.CycleID
		// Counters as read when accepted; the stored proposed count is now one higher.
		out.Proposed = sel.Proposed
		out.Engaged = sel.Engaged
		out.Ratio = sel.Ratio
		out.Rounds = sel.Rounds
		out.Forced = sel.Forced
	}
	return out
}
