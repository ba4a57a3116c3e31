package gateway

import "strings"

// AssetURL resolves an image reference returned by the API. Absolute URLs are
// kept; relative paths are joined to base. An empty ref stays empty.
func AssetURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}
