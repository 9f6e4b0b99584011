// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package classify

import (
	"net"
	"net/url"
	"strings"

	"github.com/visitgrid/visitgrid/internal/models"
)

// searchEngines are matched against individual hostname labels, which
// covers country TLD variants (google.com, google.co.uk, www.google.de).
var searchEngines = map[string]bool{
	"google":     true,
	"bing":       true,
	"yahoo":      true,
	"duckduckgo": true,
	"baidu":      true,
	"yandex":     true,
	"ecosia":     true,
	"qwant":      true,
	"startpage":  true,
}

// socialDomains are matched as exact hosts or subdomains.
var socialDomains = []string{
	"facebook.com", "fb.com", "instagram.com", "twitter.com", "x.com",
	"t.co", "linkedin.com", "pinterest.com", "reddit.com", "tiktok.com",
	"youtube.com", "youtu.be", "whatsapp.com", "telegram.org", "t.me",
	"snapchat.com", "threads.net",
}

// mailMarkers identify email-client hosts by substring.
var mailMarkers = []string{"mail", "outlook", "webmail", "email"}

// Referrer maps a referrer URL to a traffic-source category.
//
// Hostname matching a known search engine yields organic, a known social
// network yields social, mail substrings yield email, and any other
// non-empty external host yields referral. Empty, same-origin, or
// unparseable referrers fail safe to direct.
func Referrer(referrerURL, selfHost string) string {
	referrerURL = strings.TrimSpace(referrerURL)
	if referrerURL == "" {
		return models.SourceDirect
	}

	parsed, err := url.Parse(referrerURL)
	if err != nil || parsed.Hostname() == "" {
		return models.SourceDirect
	}

	host := strings.ToLower(parsed.Hostname())
	if selfHost != "" && hostMatches(host, strings.ToLower(stripPort(selfHost))) {
		return models.SourceDirect
	}

	labels := strings.Split(host, ".")
	for _, label := range labels {
		if searchEngines[label] {
			return models.SourceOrganic
		}
	}
	for _, domain := range socialDomains {
		if hostMatches(host, domain) {
			return models.SourceSocial
		}
	}
	for _, label := range labels {
		for _, marker := range mailMarkers {
			if strings.Contains(label, marker) {
				return models.SourceEmail
			}
		}
	}

	return models.SourceReferral
}

// hostMatches reports whether host equals domain or is a subdomain of it.
func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
