package routing

import "strings"

// Hint carries the tenant identity candidates extracted from one
// request. Sources are ranked: an authenticated session claim outranks
// the explicit header, which outranks the host subdomain. Ranking is
// fixed so a spoofable weaker hint can never override a stronger one.
type Hint struct {
	// SessionTenant is the tenant SID bound to the caller's session
	// token. Strongest source.
	SessionTenant string

	// HeaderTenant is the value of the tenant header (SID or slug).
	HeaderTenant string

	// HostSubdomain is the slug extracted from the request host.
	// Weakest source.
	HostSubdomain string
}

// Identifier returns the highest-ranked identity candidate, empty when
// the request carries no tenant identity at all.
func (h Hint) Identifier() string {
	if s := strings.TrimSpace(h.SessionTenant); s != "" {
		return s
	}
	if s := strings.TrimSpace(h.HeaderTenant); s != "" {
		return s
	}
	if s := strings.TrimSpace(h.HostSubdomain); s != "" {
		return s
	}
	return ""
}

// Empty reports whether the hint carries no identity at all.
func (h Hint) Empty() bool {
	return h.Identifier() == ""
}

// SubdomainFromHost extracts the tenant slug from a request host given
// the configured base domain. Returns empty for the bare base domain,
// nested subdomains, and hosts outside the base domain.
func SubdomainFromHost(host, baseDomain string) string {
	if host == "" || baseDomain == "" {
		return ""
	}

	// Strip the port if present.
	if idx := strings.LastIndex(host, ":"); idx != -1 && !strings.Contains(host[idx:], "]") {
		host = host[:idx]
	}

	host = strings.ToLower(host)
	baseDomain = strings.ToLower(baseDomain)

	suffix := "." + baseDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}

	sub := strings.TrimSuffix(host, suffix)
	if sub == "" || strings.Contains(sub, ".") {
		return ""
	}
	return sub
}
