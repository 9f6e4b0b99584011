// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package tracking

import (
	"net"
	"net/http"
	"strings"
)

// LocalhostMarker is the canonical network identity for loopback clients.
// IPv4-mapped IPv6 and loopback addresses normalize to it so local traffic
// groups under one identity instead of fragmenting across ::1, 127.0.0.1
// and ::ffff:127.0.0.1.
const LocalhostMarker = "localhost"

// forwardingHeaders in precedence order. The first header carrying a
// usable address wins.
var forwardingHeaders = []string{
	"X-Real-IP",
	"X-Forwarded-For",
	"CF-Connecting-IP",
	"X-Client-IP",
}

// IPResolver derives client network identities, optionally restricting
// which peers may assert forwarding headers.
type IPResolver struct {
	trusted []*net.IPNet
}

// NewIPResolver builds a resolver from a list of proxy CIDRs or bare IPs.
// An empty list trusts forwarding headers from any peer, which is only
// appropriate behind a controlled reverse proxy.
func NewIPResolver(trustedProxies []string) *IPResolver {
	var nets []*net.IPNet
	for _, entry := range trustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, ipNet, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, ipNet)
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
		}
	}
	return &IPResolver{trusted: nets}
}

// ClientIP derives the client's network identity for the request. When the
// socket peer is outside the trusted proxy set, forwarding headers are
// ignored and the socket address wins.
func (res *IPResolver) ClientIP(r *http.Request) string {
	if res.headersTrusted(r.RemoteAddr) {
		return ClientIP(r)
	}
	return remoteIP(r)
}

func (res *IPResolver) headersTrusted(remoteAddr string) bool {
	if len(res.trusted) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, ipNet := range res.trusted {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP derives the client's network identity from proxy forwarding
// headers, falling back to the socket-reported remote address.
func ClientIP(r *http.Request) string {
	for _, header := range forwardingHeaders {
		value := strings.TrimSpace(r.Header.Get(header))
		if value == "" {
			continue
		}
		// X-Forwarded-For may carry a proxy chain; the first entry is
		// the originating client.
		if comma := strings.IndexByte(value, ','); comma >= 0 {
			value = strings.TrimSpace(value[:comma])
		}
		if ip := normalizeIP(value); ip != "" {
			return ip
		}
	}

	return remoteIP(r)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := normalizeIP(host); ip != "" {
		return ip
	}
	return strings.TrimSpace(host)
}

// normalizeIP parses a candidate address, unwraps IPv4-mapped IPv6, and
// collapses loopback to LocalhostMarker. Returns "" for unparseable input.
func normalizeIP(raw string) string {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	if ip.IsLoopback() {
		return LocalhostMarker
	}
	return ip.String()
}
