package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/kin/internal/ops"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	deps     Deps
	renderer *Renderer
}

// HandleSurface renders the current view of a surface.
// The first visit to a surface runs a selection cycle. JSON callers get an
// ops.NextOutput either way; later visits carry no selection details.
func (h *Handlers) HandleSurface(w http.ResponseWriter, r *http.Request) {
	surface := r.PathValue("surface")

	view, ok := h.deps.Host.View(surface)
	if !ok {
		out, err := ops.Next(r.Context(), h.deps.Host, ops.NextInput{Surface: surface})
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		h.renderNext(w, r, out, "")
		return
	}
	h.renderNext(w, r, ops.ViewOutput(surface, view), "")
}

// HandleRefresh runs a selection cycle on the surface.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	surface := r.PathValue("surface")

	out, err := ops.Next(r.Context(), h.deps.Host, ops.NextInput{Surface: surface})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	redirectToSurface(w, r, surface)
}

// HandleEngage records engagement with the contact in the form and refreshes the surface.
func (h *Handlers) HandleEngage(w http.ResponseWriter, r *http.Request) {
	surface := r.PathValue("surface")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	out, err := ops.Engage(r.Context(), h.deps.Host, ops.EngageInput{
		Surface:   surface,
		ContactID: r.PostForm.Get("contact_id"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	if out.RecordError != "" {
		// Keep the notice visible instead of redirecting it away.
		h.renderNext(w, r, out.Next, "Engagement was not recorded. Try again later.")
		return
	}
	redirectToSurface(w, r, surface)
}

func (h *Handlers) renderNext(w http.ResponseWriter, r *http.Request, out *ops.NextOutput, notice string) {
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	view, _ := h.deps.Host.View(out.Surface)
	h.renderer.renderPage(w, r, "widget", WidgetPageData{
		PageData: h.renderer.page(view.Name(), "surface"),
		Surface:  out.Surface,
		View:     view,
		Status:   out.Status,
		Proposed: out.Proposed,
		Engaged:  out.Engaged,
		Ratio:    out.Ratio,
		Notice:   notice,
	})
}

// HandleStats lists counter records, most engaged first.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Stats(r.Context(), h.deps.DB, h.deps.Source, ops.StatsInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultStatsLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	h.renderer.renderPage(w, r, "stats", StatsPageData{
		PageData:   h.renderer.page("Counters", "stats"),
		Items:      out.Items,
		Pagination: out.Pagination,
	})
}

// HandleAbout renders the embedded about page.
func (h *Handlers) HandleAbout(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "about", AboutPageData{
		PageData:     h.renderer.page("About", "about"),
		RenderedHTML: renderMarkdown(aboutMarkdown),
	})
}

// redirectToSurface sends a post/redirect/get back to the surface page.
// HTMX requests get an HX-Redirect header instead.
func redirectToSurface(w http.ResponseWriter, r *http.Request, surface string) {
	target := "/surfaces/" + surface
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// parseIntParam parses an integer query parameter, returning defaultVal on missing or invalid.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
