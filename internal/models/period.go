// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package models

import "time"

// DefaultPeriodLabel is the window used when a period parameter is absent
// or unrecognized. Bad period input never errors; it falls back here.
const DefaultPeriodLabel = "30d"

// ResolvePeriod maps a period label onto a concrete [Start, End) window
// ending at now. Recognized labels are 7d, 30d, 90d, and 1y; anything else
// resolves to the 30-day default.
func ResolvePeriod(label string, now time.Time) PeriodWindow {
	now = now.UTC()
	switch label {
	case "7d":
		return PeriodWindow{Label: "7d", Start: now.AddDate(0, 0, -7), End: now}
	case "30d":
		return PeriodWindow{Label: "30d", Start: now.AddDate(0, 0, -30), End: now}
	case "90d":
		return PeriodWindow{Label: "90d", Start: now.AddDate(0, 0, -90), End: now}
	case "1y":
		return PeriodWindow{Label: "1y", Start: now.AddDate(-1, 0, 0), End: now}
	default:
		return PeriodWindow{Label: DefaultPeriodLabel, Start: now.AddDate(0, 0, -30), End: now}
	}
}

// CustomPeriod builds an explicit [start, end) window. A degenerate range
// (end not after start) falls back to the 30-day default ending at end.
func CustomPeriod(start, end time.Time) PeriodWindow {
	if !end.After(start) {
		return ResolvePeriod(DefaultPeriodLabel, end)
	}
	return PeriodWindow{Label: "custom", Start: start.UTC(), End: end.UTC()}
}
