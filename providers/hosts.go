package providers

import "strings"

// HostAllowList matches hostnames against exact entries and "*.suffix"
// wildcards. A wildcard matches subdomains only, not the bare suffix.
type HostAllowList struct {
	exact    map[string]struct{}
	suffixes []string
}

// NewHostAllowList builds an allow-list from patterns such as
// "pexels.com" or "*.vimeocdn.com". Matching is case-insensitive.
func NewHostAllowList(patterns ...string) *HostAllowList {
	l := &HostAllowList{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "*.") {
			l.suffixes = append(l.suffixes, p[1:])
			continue
		}
		l.exact[p] = struct{}{}
	}
	return l
}

// Allows reports whether host is on the list.
func (l *HostAllowList) Allows(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}
	if _, ok := l.exact[host]; ok {
		return true
	}
	for _, suffix := range l.suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
