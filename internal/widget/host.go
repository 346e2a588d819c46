// Package widget hosts presentation surfaces.
//
// Each surface runs at most one selection cycle at a time. A trigger that
// arrives while a cycle is in flight is dropped with status "skipped";
// triggers are never queued. A cycle, once started, runs to completion even
// if the caller's context is cancelled.
package widget

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hpungsan/kin/internal/errors"
	"github.com/hpungsan/kin/internal/logging"
	"github.com/hpungsan/kin/internal/selection"
)

// DefaultSurface is the surface used when a caller names none.
const DefaultSurface = "default"

// Status is the outcome of one refresh.
type Status string

const (
	StatusRendered Status = "rendered"
	StatusSkipped  Status = "skipped"
	StatusEmpty    Status = "empty"
	StatusFailed   Status = "failed"
)

// Selector picks the next contact. *selection.Engine implements it.
type Selector interface {
	Select(ctx context.Context, lastShown string) (*selection.Selection, error)
}

// EngagementRecorder records engagement. *selection.Recorder implements it.
type EngagementRecorder interface {
	Record(ctx context.Context, contactID string) (bool, error)
}

// Result describes one refresh of one surface.
type Result struct {
	Status    Status               `json:"status"`
	View      View                 `json:"view"`
	Selection *selection.Selection `json:"selection,omitempty"`
}

// EngageResult is the outcome of an engage interaction.
type EngageResult struct {
	Recorded bool `json:"recorded"`
	// Attempts counts Record calls, including retries.
	Attempts  int    `json:"attempts"`
	RecordErr error  `json:"-"`
	Next      Result `json:"next"`
}

type surface struct {
	// cycle serializes selection cycles; TryLock drops concurrent triggers.
	cycle sync.Mutex

	mu        sync.Mutex
	lastShown string
	view      View
	rendered  bool
}

func (s *surface) snapshot() (string, View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastShown, s.view, s.rendered
}

func (s *surface) store(lastShown string, v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastShown = lastShown
	s.view = v
	s.rendered = true
}

// Host owns per-surface selection state and runs cycles for every trigger source.
type Host struct {
	selector Selector
	recorder EngagementRecorder
	sink     Sink
	retries  int
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	surfaces map[string]*surface
	// fixed hosts only serve registered surfaces.
	fixed bool
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithSink sets where rendered views go.
func WithSink(s Sink) HostOption {
	return func(h *Host) { h.sink = s }
}

// WithEngageRetries sets how many times a failed engagement write is retried.
// Negative disables retries.
func WithEngageRetries(n int) HostOption {
	return func(h *Host) { h.retries = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock overrides time.Now for RenderedAt stamps.
func WithClock(now func() time.Time) HostOption {
	return func(h *Host) {
		if now != nil {
			h.now = now
		}
	}
}

// WithSurfaces fixes the set of surfaces the host serves. Triggers naming any
// other surface fail with NOT_FOUND until it is added with Register.
// Without this option surfaces are created on first use.
func WithSurfaces(ids ...string) HostOption {
	return func(h *Host) {
		h.fixed = true
		for _, id := range ids {
			h.Register(id)
		}
	}
}

// NewHost builds a host over a selector and a recorder.
func NewHost(selector Selector, recorder EngagementRecorder, opts ...HostOption) *Host {
	h := &Host{
		selector: selector,
		recorder: recorder,
		retries:  1,
		logger:   logging.Discard(),
		now:      time.Now,
		surfaces: make(map[string]*surface),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds a surface so timer and data-change triggers reach it.
// Registering a known surface is a no-op.
func (h *Host) Register(id string) {
	if id == "" {
		id = DefaultSurface
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.surfaces[id]; !ok {
		h.surfaces[id] = &surface{}
	}
}

// HasSurface reports whether the host serves id. A host without a fixed
// surface set serves any id.
func (h *Host) HasSurface(id string) bool {
	if id == "" {
		id = DefaultSurface
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.surfaces[id]
	return ok || !h.fixed
}

func (h *Host) surfaceFor(id string) (*surface, bool) {
	if id == "" {
		id = DefaultSurface
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.surfaces[id]
	if !ok {
		if h.fixed {
			return nil, false
		}
		s = &surface{}
		h.surfaces[id] = s
	}
	return s, true
}

// Surfaces lists known surface ids in sorted order.
func (h *Host) Surfaces() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.surfaces))
	for id := range h.surfaces {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// View returns the last rendered view of a surface, false if none yet.
func (h *Host) View(surfaceID string) (View, bool) {
	if surfaceID == "" {
		surfaceID = DefaultSurface
	}
	h.mu.Lock()
	s, ok := h.surfaces[surfaceID]
	h.mu.Unlock()
	if !ok {
		return View{}, false
	}
	_, v, rendered := s.snapshot()
	return v, rendered
}

// LastShown returns the surface's last shown contact id.
func (h *Host) LastShown(surfaceID string) string {
	s, ok := h.surfaceFor(surfaceID)
	if !ok {
		return ""
	}
	last, _, _ := s.snapshot()
	return last
}

// SetLastShown seeds a surface's exclusion state. One-shot callers such as
// the CLI use it to carry the previous pick across processes. Unknown
// surfaces on a fixed host are ignored.
func (h *Host) SetLastShown(surfaceID, contactID string) {
	s, ok := h.surfaceFor(surfaceID)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastShown = contactID
}

// Refresh runs one selection cycle for a surface.
//
// On NO_CONTACTS_AVAILABLE the empty view is rendered and the status is
// "empty" with a nil error. On any other failure the surface keeps its
// previous view, the status is "failed" and the error is returned.
// An unknown surface on a fixed host fails with NOT_FOUND.
func (h *Host) Refresh(ctx context.Context, surfaceID string) (Result, error) {
	if surfaceID == "" {
		surfaceID = DefaultSurface
	}
	s, ok := h.surfaceFor(surfaceID)
	if !ok {
		return Result{Status: StatusFailed}, errors.NewSurfaceNotFound(surfaceID)
	}

	if !s.cycle.TryLock() {
		h.logger.Debug("refresh skipped, cycle in flight", "surface", surfaceID)
		_, v, _ := s.snapshot()
		return Result{Status: StatusSkipped, View: v}, nil
	}
	defer s.cycle.Unlock()

	ctx = context.WithoutCancel(ctx)
	lastShown, previous, _ := s.snapshot()

	sel, err := h.selector.Select(ctx, lastShown)
	if err != nil {
		if errors.Is(err, errors.ErrNoContactsAvailable) {
			v := emptyView(surfaceID, h.now())
			s.store(lastShown, v)
			if rerr := h.render(v); rerr != nil {
				return Result{Status: StatusFailed, View: v}, rerr
			}
			h.logger.Info("address book empty", "surface", surfaceID)
			return Result{Status: StatusEmpty, View: v}, nil
		}
		h.logger.Warn("refresh failed", "surface", surfaceID, "error", err)
		return Result{Status: StatusFailed, View: previous}, err
	}

	v := contactView(surfaceID, sel.Contact, h.now())
	s.store(sel.Contact.ID, v)
	if err := h.render(v); err != nil {
		return Result{Status: StatusFailed, View: v, Selection: sel}, err
	}
	return Result{Status: StatusRendered, View: v, Selection: sel}, nil
}

func (h *Host) render(v View) error {
	if h.sink == nil {
		return nil
	}
	if err := h.sink.Render(v); err != nil {
		h.logger.Warn("sink render failed", "surface", v.SurfaceID, "error", err)
		return errors.NewInternal(err)
	}
	return nil
}

// Engage records engagement with contactID and then refreshes the surface.
// A write that still fails after retries is logged and reported in
// RecordErr; the refresh happens regardless.
func (h *Host) Engage(ctx context.Context, surfaceID, contactID string) (EngageResult, error) {
	ctx = context.WithoutCancel(ctx)
	if surfaceID == "" {
		surfaceID = DefaultSurface
	}
	if !h.HasSurface(surfaceID) {
		return EngageResult{Next: Result{Status: StatusFailed}}, errors.NewSurfaceNotFound(surfaceID)
	}

	var res EngageResult
	if contactID != "" {
		attempts := 1
		if h.retries > 0 {
			attempts += h.retries
		}
		for i := 0; i < attempts; i++ {
			res.Attempts++
			res.Recorded, res.RecordErr = h.recorder.Record(ctx, contactID)
			if res.RecordErr == nil {
				break
			}
			h.logger.Debug("engagement write failed", "contact_id", contactID, "attempt", res.Attempts, "error", res.RecordErr)
		}
		if res.RecordErr != nil {
			h.logger.Warn("engagement not recorded", "surface", surfaceID, "contact_id", contactID, "attempts", res.Attempts, "error", res.RecordErr)
		}
	}

	next, err := h.Refresh(ctx, surfaceID)
	res.Next = next
	return res, err
}

// RefreshAll refreshes every known surface. Errors are logged per surface;
// the first one is returned.
func (h *Host) RefreshAll(ctx context.Context) ([]Result, error) {
	ids := h.Surfaces()
	results := make([]Result, 0, len(ids))
	var first error
	for _, id := range ids {
		r, err := h.Refresh(ctx, id)
		results = append(results, r)
		if err != nil && first == nil {
			first = err
		}
	}
	return results, first
}

// NotifyDataChanged is the data-change trigger: the address book or counters
// changed outside a cycle.
func (h *Host) NotifyDataChanged(ctx context.Context) ([]Result, error) {
	h.logger.Info("data changed, refreshing surfaces", "surfaces", len(h.Surfaces()))
	return h.RefreshAll(ctx)
}
