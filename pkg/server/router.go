package server

import (
	"path"
	"strings"
)

// PageName maps a request path to the page key the runtime resolves.
// "/" becomes "index", a trailing slash is dropped and a ".html" suffix is
// removed, so "/blog/", "/blog" and "/blog.html" all name "blog".
func PageName(urlPath string) string {
	segments := splitPath(path.Clean("/" + urlPath))
	if len(segments) == 0 {
		return "index"
	}
	last := len(segments) - 1
	segments[last] = strings.TrimSuffix(segments[last], ".html")
	if segments[last] == "" {
		segments = segments[:last]
	}
	if len(segments) == 0 {
		return "index"
	}
	return strings.Join(segments, "/")
}

// splitPath splits a path into its non-empty segments.
func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return []string{}
	}
	return strings.Split(p, "/")
}

// isAsset reports whether the last path segment carries a file extension
// other than .html. Such requests are left to the fallback handler.
func isAsset(urlPath string) bool {
	segments := splitPath(urlPath)
	if len(segments) == 0 {
		return false
	}
	ext := path.Ext(segments[len(segments)-1])
	return ext != "" && ext != ".html"
}
