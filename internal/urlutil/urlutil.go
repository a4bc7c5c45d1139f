package urlutil

import (
	"net/url"
	"strings"
)

// BuildAbsolute builds an absolute URL from a base origin and a path.
func BuildAbsolute(base, path string) string {
	base = normalizeBaseURL(base)
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}

// JoinPath appends path elements to base. Each element may contain slashes;
// every non-empty segment is percent-escaped, so a filename with spaces or
// '#' stays a single path segment.
func JoinPath(base string, elems ...string) string {
	var segments []string
	for _, elem := range elems {
		for _, seg := range strings.Split(elem, "/") {
			if seg == "" || seg == "." {
				continue
			}
			segments = append(segments, url.PathEscape(seg))
		}
	}
	return BuildAbsolute(base, strings.Join(segments, "/"))
}

// DAVPath returns the path of a user's file under the WebDAV files root.
func DAVPath(user, filename string) string {
	return "remote.php/dav/files/" + user + "/" + strings.TrimLeft(filename, "/")
}

// TrashbinPath returns the path of a user's trash-bin collection.
func TrashbinPath(user string) string {
	return "remote.php/dav/trash-bin/" + user
}

func normalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/")
}
