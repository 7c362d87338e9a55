// Package fingerprint computes the deterministic deduplication keys used
// across the entity store and the job queue.
//
// URL produces an identity fingerprint from a normalized source URL; Content
// produces a content fingerprint from raw text verbatim. Both are pure
// functions and must stay byte-stable across releases - stored records are
// keyed by their output.
package fingerprint

import (
	"crypto/md5" //nolint:gosec // not used for security, only as a stable dedup key
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query parameters stripped during URL normalization.
// They identify campaigns and click sources, not content.
var trackingParams = map[string]bool{
	"gclid":  true,
	"fbclid": true,
	"ref":    true,
	"mc_cid": true,
	"mc_eid": true,
	"igshid": true,
}

// URL returns the identity fingerprint for a source URL.
// Normalization strips the protocol, a leading "www.", the fragment, the
// trailing slash, and tracking query parameters; remaining query parameters
// are sorted so the result is order-independent.
func URL(rawURL string) string {
	return hash(NormalizeURL(rawURL))
}

// Content returns the content fingerprint for raw text, hashed verbatim
func Content(text string) string {
	return hash(text)
}

// NormalizeURL applies the stable normalization rules used by URL.
// Inputs that do not parse as URLs are normalized as bare strings.
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)

	parsed, err := url.Parse(withScheme(trimmed))
	if err != nil || parsed.Host == "" {
		return strings.TrimSuffix(trimmed, "/")
	}

	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")

	path := strings.TrimSuffix(parsed.Path, "/")

	query := normalizeQuery(parsed.Query())

	var b strings.Builder
	b.WriteString(host)
	b.WriteString(path)
	if query != "" {
		b.WriteString("?")
		b.WriteString(query)
	}
	return b.String()
}

// normalizeQuery drops tracking parameters and renders the rest sorted by key
func normalizeQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if trackingParams[key] || strings.HasPrefix(key, "utm_") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		vals := values[key]
		sort.Strings(vals)
		for _, val := range vals {
			if b.Len() > 0 {
				b.WriteString("&")
			}
			b.WriteString(key)
			b.WriteString("=")
			b.WriteString(val)
		}
	}
	return b.String()
}

// withScheme ensures url.Parse sees a host component
func withScheme(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

func hash(input string) string {
	sum := md5.Sum([]byte(input)) //nolint:gosec // stable dedup key, not a credential
	return hex.EncodeToString(sum[:])
}
