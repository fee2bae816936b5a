package httpmetrics

import (
	"regexp"
	"strings"
)

// maxSegments bounds the label for proxied paths, which come from the
// upstream API and are not known in advance.
const maxSegments = 4

var opaqueSegment = regexp.MustCompile(`^(?:[0-9]+|[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}|[0-9A-Za-z_-]{20,})$`)

// NormalizePath turns ids into {id} and keeps at most maxSegments segments,
// so /api/orders/1842/items and /api/orders/77/items share one series.
func NormalizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "/"
	}

	segments := strings.Split(path, "/")
	truncated := len(segments) > maxSegments
	if truncated {
		segments = segments[:maxSegments]
	}
	for i, seg := range segments {
		if opaqueSegment.MatchString(seg) && !isWord(seg) {
			segments[i] = "{id}"
		}
	}

	out := "/" + strings.Join(segments, "/")
	if truncated {
		out += "/*"
	}
	return out
}

// isWord keeps long lowercase route names such as "inventory_adjustments".
func isWord(seg string) bool {
	for _, r := range seg {
		if (r < 'a' || r > 'z') && r != '_' && r != '-' {
			return false
		}
	}
	return true
}
