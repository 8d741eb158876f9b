package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// RequestValue exposes r to templates as request. Query parameters and
// headers keep their first value; header names are lower cased.
func RequestValue(r *http.Request) map[string]any {
	query := make(map[string]any, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	headers := make(map[string]any, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}
	return map[string]any{
		"method":  r.Method,
		"path":    r.URL.Path,
		"query":   query,
		"headers": headers,
	}
}

// requestURL returns the absolute URL of r.
func requestURL(r *http.Request) *url.URL {
	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}
	return &u
}

func requestLogger(base *slog.Logger, r *http.Request) *slog.Logger {
	return base.With(
		"path", r.URL.Path,
		"method", r.Method,
	)
}
