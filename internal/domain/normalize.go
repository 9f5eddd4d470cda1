package domain

import "strings"

// NormalizeDomain canonicalizes a raw domain string so lookups and dedup are
// stable: lowercase and trim, strip the scheme, drop path/query/fragment, drop
// a trailing port, drop a leading "www.". Idempotent by construction; two raw
// strings that normalize identically resolve to the same site.
func NormalizeDomain(raw string) string {
    d := strings.ToLower(strings.TrimSpace(raw))

    d = strings.TrimPrefix(d, "https://")
    d = strings.TrimPrefix(d, "http://")

    if i := strings.IndexAny(d, "/?#"); i >= 0 {
        d = d[:i]
    }
    if host, _, ok := strings.Cut(d, ":"); ok {
        d = host
    }
    d = strings.TrimPrefix(d, "www.")

    return d
}
