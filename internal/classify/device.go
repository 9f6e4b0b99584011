// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

// Package classify provides pure, deterministic classification of raw
// client signatures into structured device info and of referrer URLs into
// traffic-source categories. Classification never fails: unparseable input
// degrades to heuristics and ultimately to the unknown/direct defaults.
package classify

import (
	"strings"

	ua "github.com/mileusna/useragent"

	"github.com/visitgrid/visitgrid/internal/models"
)

// Device maps a raw user-agent string to structured device info.
//
// The structured parse is preferred; when it yields nothing usable the
// classifier falls back to substring heuristics. Empty input yields the
// unknown triple. Identical input always yields identical output.
func Device(userAgent string) models.DeviceInfo {
	if strings.TrimSpace(userAgent) == "" {
		return models.DeviceInfo{
			Type:    models.DeviceUnknown,
			Browser: models.DeviceUnknown,
			OS:      models.DeviceUnknown,
		}
	}

	parsed := ua.Parse(userAgent)

	info := models.DeviceInfo{
		Type:    deviceType(parsed, userAgent),
		Browser: parsed.Name,
		OS:      parsed.OS,
	}
	if info.Browser == "" {
		info.Browser = models.DeviceUnknown
	}
	if info.OS == "" {
		info.OS = models.DeviceUnknown
	}
	return info
}

func deviceType(parsed ua.UserAgent, userAgent string) string {
	switch {
	case parsed.Tablet:
		return models.DeviceTablet
	case parsed.Mobile:
		return models.DeviceMobile
	case parsed.Desktop:
		return models.DeviceDesktop
	}
	return heuristicType(userAgent)
}

// heuristicType covers signatures the structured parser cannot place.
// Mobile markers are checked before tablet markers, so a degenerate
// signature carrying both classifies as mobile.
func heuristicType(userAgent string) string {
	lower := strings.ToLower(userAgent)
	switch {
	case strings.Contains(lower, "mobile"),
		strings.Contains(lower, "android"),
		strings.Contains(lower, "iphone"):
		return models.DeviceMobile
	case strings.Contains(lower, "tablet"), strings.Contains(lower, "ipad"):
		return models.DeviceTablet
	}
	return models.DeviceDesktop
}

// botMarkers are substrings that identify automated clients beyond what
// the structured parser flags.
var botMarkers = []string{
	"bot", "crawler", "spider", "scraper", "curl/", "wget/",
	"python-requests", "go-http-client", "headless",
}

// Bot reports whether the client signature belongs to an automated client.
// Bot visits are recorded but excluded from all aggregation.
func Bot(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	if ua.Parse(userAgent).Bot {
		return true
	}
	lower := strings.ToLower(userAgent)
	for _, marker := range botMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Language extracts the primary language tag from an Accept-Language
// header value, e.g. "en-US,en;q=0.9" -> "en-US".
func Language(acceptLanguage string) string {
	if acceptLanguage == "" {
		return ""
	}
	primary := acceptLanguage
	if idx := strings.IndexByte(primary, ','); idx >= 0 {
		primary = primary[:idx]
	}
	if idx := strings.IndexByte(primary, ';'); idx >= 0 {
		primary = primary[:idx]
	}
	return strings.TrimSpace(primary)
}
