// Package timeutil provides helpers for the HHMMSSmmm intraday time
// format used throughout market data, including session-aware elapsed
// time that accounts for the Shanghai/Shenzhen lunch break.
package timeutil

const (
	morningOpen    = 93000000  // 09:30:00.000
	morningClose   = 113000000 // 11:30:00.000
	afternoonOpen  = 130000000 // 13:00:00.000
	afternoonClose = 150000000 // 15:00:00.000
)

// IsMarketOpen reports whether mdtime (HHMMSSmmm) falls in either
// continuous-auction session.
func IsMarketOpen(mdtime int32) bool {
	return (mdtime >= morningOpen && mdtime < morningClose) ||
		(mdtime >= afternoonOpen && mdtime < afternoonClose)
}

// ToMillis converts an HHMMSSmmm value to milliseconds since midnight.
func ToMillis(mdtime int32) int64 {
	ms := int64(mdtime) % 1000
	secs := int64(mdtime) / 1000
	hh := secs / 10000
	mm := (secs / 100) % 100
	ss := secs % 100
	return ((hh*60+mm)*60+ss)*1000 + ms
}

// SessionElapsedMillis returns the number of milliseconds of trading
// session time that have elapsed at mdtime since the 09:30:00 open,
// with the 11:30-13:00 lunch break excluded from the count. Times
// before the open return 0; times after the close are clamped to the
// full session length.
func SessionElapsedMillis(mdtime int32) int64 {
	if mdtime < morningOpen {
		return 0
	}
	if mdtime >= afternoonClose {
		return ToMillis(morningClose) - ToMillis(morningOpen) + ToMillis(afternoonClose) - ToMillis(afternoonOpen)
	}
	if mdtime < morningClose {
		return ToMillis(mdtime) - ToMillis(morningOpen)
	}
	if mdtime < afternoonOpen {
		// Lunch break: session clock is frozen at the morning close.
		return ToMillis(morningClose) - ToMillis(morningOpen)
	}
	morningSpan := ToMillis(morningClose) - ToMillis(morningOpen)
	return morningSpan + ToMillis(mdtime) - ToMillis(afternoonOpen)
}

// DiffMillis returns the session-aware elapsed time between two
// HHMMSSmmm timestamps on the same trading day, b - a, never naively
// subtracting across the lunch-break gap.
func DiffMillis(a, b int32) int64 {
	return SessionElapsedMillis(b) - SessionElapsedMillis(a)
}

// IsWithinMillis reports whether earlier is within windowMS of later on
// the session-elapsed clock (earlier must not be after later).
func IsWithinMillis(earlier, later int32, windowMS int64) bool {
	return DiffMillis(earlier, later) <= windowMS
}
