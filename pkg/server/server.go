// Package server serves rendered pages over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/recera/lumen/pkg/render"
)

// Source returns the runtime to render a request with. The dev server swaps
// runtimes on reload, so the handler asks for one per request.
type Source func() *render.Runtime

// Static returns a Source that always yields rt.
func Static(rt *render.Runtime) Source {
	return func() *render.Runtime { return rt }
}

// Handler renders the page named by the request path.
type Handler struct {
	source   Source
	notFound string
	inject   string
	fallback http.Handler
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithNotFound sets the page rendered, with status 404, when no page matches.
func WithNotFound(page string) Option {
	return func(h *Handler) { h.notFound = page }
}

// WithInjection appends snippet to every page, before the closing body tag.
func WithInjection(snippet string) Option {
	return func(h *Handler) { h.inject = snippet }
}

// WithFallback sets the handler for asset requests, e.g. a file server.
func WithFallback(fallback http.Handler) Option {
	return func(h *Handler) { h.fallback = fallback }
}

// WithLogger sets the logger for render failures.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// New creates a Handler rendering with the runtime source yields.
func New(source Source, opts ...Option) *Handler {
	h := &Handler{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.fallback != nil && isAsset(r.URL.Path) {
		h.fallback.ServeHTTP(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	logger := requestLogger(h.logger, r)
	rt := h.source()
	in := render.Input{
		Request: RequestValue(r),
		URL:     requestURL(r),
	}

	name := PageName(r.URL.Path)
	html, ok, err := rt.Render(r.Context(), name, in)
	if err != nil {
		logger.Error("render failed", "page", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusNotFound
		if h.notFound == "" {
			http.NotFound(w, r)
			return
		}
		html, ok, err = rt.Render(r.Context(), h.notFound, in)
		if err != nil {
			logger.Error("render failed", "page", h.notFound, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
	}

	if h.inject != "" {
		html = injectBeforeBody(html, h.inject)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write([]byte(html)); err != nil {
		logger.Warn("write failed", "error", err)
	}
}

func injectBeforeBody(html, snippet string) string {
	if i := strings.LastIndex(html, "</body>"); i >= 0 {
		return html[:i] + snippet + html[i:]
	}
	return html + snippet
}
