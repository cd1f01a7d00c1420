package helpers

import (
	"net/url"
	"strings"
)

// LastPathSegment returns the last non-empty, unescaped path segment of rawURL.
// It returns the host when the path is empty and "" when rawURL does not parse.
func LastPathSegment(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] == "" {
			continue
		}
		if seg, err := url.PathUnescape(parts[i]); err == nil {
			return seg
		}
		return parts[i]
	}
	return u.Hostname()
}

// ResolveURL resolves ref against base. Absolute refs and unparsable input
// are returned unchanged.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return ref
	}
	return b.ResolveReference(r).String()
}

// Hostname returns the lowercased host of rawURL without port.
func Hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Origin returns scheme://host of rawURL with a trailing slash, used as Referer.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}
