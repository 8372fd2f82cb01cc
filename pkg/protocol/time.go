package protocol

import (
	"strconv"
	"strings"
	"time"
)

// systemTimeParts is the field count of the tracker clock format
// YYYY:MM:DD:HH:MM:SS:MS.
const systemTimeParts = 7

// ParseSystemTime parses the tracker clock string. The final field is
// integer milliseconds. Returns the parsed time and true on success; on any
// malformed input it falls back to the receiver's wall clock and returns
// false, so a bad tracker clock never stalls the stream.
func ParseSystemTime(s string) (time.Time, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != systemTimeParts {
		return time.Now(), false
	}

	vals := make([]int, systemTimeParts)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Now(), false
		}
		vals[i] = v
	}

	year, month, day := vals[0], vals[1], vals[2]
	hour, minute, sec, ms := vals[3], vals[4], vals[5], vals[6]

	// time.Date normalizes out-of-range fields instead of failing, so the
	// calendar sanity checks live here.
	switch {
	case month < 1 || month > 12,
		day < 1 || day > 31,
		hour < 0 || hour > 23,
		minute < 0 || minute > 59,
		sec < 0 || sec > 59,
		ms < 0 || ms > 999:
		return time.Now(), false
	}

	return time.Date(year, time.Month(month), day, hour, minute, sec, ms*int(time.Millisecond), time.Local), true
}

// FormatSystemTime renders t in the tracker clock format. Inverse of
// ParseSystemTime, used by simulators and the session recorder.
func FormatSystemTime(t time.Time) string {
	ms := t.Nanosecond() / int(time.Millisecond)
	return t.Format("2006:01:02:15:04:05") + ":" + strconv.Itoa(ms)
}
