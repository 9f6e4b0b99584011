// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package classify

import (
	"testing"

	"github.com/visitgrid/visitgrid/internal/models"
)

const (
	uaChromeMac    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaIPhoneSafari = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	uaIPad         = "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"
	uaGooglebot    = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestDevice_StructuredParse(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		wantType  string
	}{
		{"desktop chrome", uaChromeMac, models.DeviceDesktop},
		{"iphone", uaIPhoneSafari, models.DeviceMobile},
		{"ipad", uaIPad, models.DeviceTablet},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Device(tc.userAgent)
			if got.Type != tc.wantType {
				t.Errorf("Device(%q).Type = %q, want %q", tc.userAgent, got.Type, tc.wantType)
			}
			if got.Browser == "" || got.OS == "" {
				t.Errorf("Device(%q) left browser/os empty: %+v", tc.userAgent, got)
			}
		})
	}
}

func TestDevice_EmptyInputYieldsUnknownTriple(t *testing.T) {
	got := Device("")
	want := models.DeviceInfo{
		Type:    models.DeviceUnknown,
		Browser: models.DeviceUnknown,
		OS:      models.DeviceUnknown,
	}
	if got != want {
		t.Errorf("Device(\"\") = %+v, want %+v", got, want)
	}

	if got := Device("   "); got != want {
		t.Errorf("Device(blank) = %+v, want %+v", got, want)
	}
}

func TestDevice_HeuristicFallback(t *testing.T) {
	tests := []struct {
		userAgent string
		wantType  string
	}{
		{"some-opaque-client mobile build 7", models.DeviceMobile},
		{"weird android thing", models.DeviceMobile},
		{"custom iphone shell", models.DeviceMobile},
		{"proprietary tablet firmware", models.DeviceTablet},
		{"totally unrecognizable string", models.DeviceDesktop},
	}

	for _, tc := range tests {
		got := Device(tc.userAgent)
		if got.Type != tc.wantType {
			t.Errorf("Device(%q).Type = %q, want %q", tc.userAgent, got.Type, tc.wantType)
		}
	}
}

func TestHeuristicType_MobileMarkersWin(t *testing.T) {
	tests := []struct {
		userAgent string
		wantType  string
	}{
		{"opaque mobile tablet client", models.DeviceMobile},
		{"custom tablet shell with mobile build", models.DeviceMobile},
		{"bare tablet shell", models.DeviceTablet},
	}

	for _, tc := range tests {
		if got := heuristicType(tc.userAgent); got != tc.wantType {
			t.Errorf("heuristicType(%q) = %q, want %q", tc.userAgent, got, tc.wantType)
		}
	}
}

func TestDevice_Deterministic(t *testing.T) {
	first := Device(uaChromeMac)
	for i := 0; i < 10; i++ {
		if got := Device(uaChromeMac); got != first {
			t.Fatalf("Device is not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestBot(t *testing.T) {
	tests := []struct {
		userAgent string
		want      bool
	}{
		{uaGooglebot, true},
		{"curl/8.0.1", true},
		{"python-requests/2.31", true},
		{"Mozilla/5.0 AhrefsBot/7.0", true},
		{uaChromeMac, false},
		{uaIPhoneSafari, false},
		{"", false},
	}

	for _, tc := range tests {
		if got := Bot(tc.userAgent); got != tc.want {
			t.Errorf("Bot(%q) = %v, want %v", tc.userAgent, got, tc.want)
		}
	}
}

func TestLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"en-US,en;q=0.9", "en-US"},
		{"de-DE", "de-DE"},
		{"fr;q=0.8,en;q=0.5", "fr"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := Language(tc.header); got != tc.want {
			t.Errorf("Language(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
