// Package clientip resolves the caller's address behind edge proxies.
package clientip

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"
)

type contextKey struct{}

// Info is the resolved client address.
type Info struct {
	// Primary is the most trusted single address, used for logs.
	Primary string
	// RateLimitKey joins every address seen, sorted. RemoteAddr is always part
	// of it so a forged header cannot move a caller into another bucket alone.
	RateLimitKey string
}

// trustedHeaders are consulted in order; the first present one is Primary.
var trustedHeaders = []string{
	"Fly-Client-IP",
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Real-IP",
}

// Middleware stores Info in the request context and rewrites RemoteAddr to
// the primary address.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := extract(r)
		r.RemoteAddr = info.Primary
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, info)))
	})
}

// FromContext returns the zero Info outside Middleware.
func FromContext(ctx context.Context) Info {
	info, _ := ctx.Value(contextKey{}).(Info)
	return info
}

func FromRequest(r *http.Request) Info {
	return FromContext(r.Context())
}

func extract(r *http.Request) Info {
	var primary string
	seen := map[string]bool{}
	add := func(raw string) {
		ip := normalize(raw)
		if ip == "" {
			return
		}
		seen[ip] = true
		if primary == "" {
			primary = ip
		}
	}

	for _, h := range trustedHeaders {
		add(r.Header.Get(h))
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		add(first)
	}

	remote := hostOnly(r.RemoteAddr)
	if remote != "" {
		seen[remote] = true
		if primary == "" {
			primary = remote
		}
	}

	ips := make([]string, 0, len(seen))
	for ip := range seen {
		ips = append(ips, ip)
	}
	slices.Sort(ips)
	return Info{Primary: primary, RateLimitKey: strings.Join(ips, "|")}
}

// normalize returns the canonical form of an IP, or the trimmed input when it
// does not parse.
func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap().String()
	}
	return s
}

// hostOnly strips the port from "ip:port" and "[ipv6]:port".
func hostOnly(addr string) string {
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return normalize(host)
	}
	return normalize(strings.Trim(addr, "[]"))
}
