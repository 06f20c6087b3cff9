package timetable

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reClock     = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::\d{2}(?:\.\d+)?)?$`)
	reCompact   = regexp.MustCompile(`^(\d{1,2})(\d{2})$`)
	reDotted    = regexp.MustCompile(`^(\d{1,2})\.(\d{2})$`)
	reEmbedded  = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	reSpaceRuns = regexp.MustCompile(`\s+`)
)

// NormalizeHHMM turns the time spellings found in imported sheets and database
// rows into "HH:MM". Input it cannot read is returned unchanged.
func NormalizeHHMM(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return s
	}
	for _, re := range []*regexp.Regexp{reClock, reCompact, reDotted, reEmbedded} {
		if m := re.FindStringSubmatch(s); m != nil {
			if hhmm, ok := pad(m[1], m[2]); ok {
				return hhmm
			}
			return value
		}
	}
	return value
}

// pad rejects hours above 23 and minutes above 59.
func pad(h, m string) (string, bool) {
	hour, _ := strconv.Atoi(h)
	minute, _ := strconv.Atoi(m)
	if hour > 23 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%s", hour, m), true
}

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// DayIndex maps a weekday to Monday=0 .. Sunday=6. Full names and prefixes of at
// least three letters are accepted in any case. Digits are returned as-is, so
// schemas that count Monday as 1 stay 1-based.
func DayIndex(day string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(day))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 0
	}
	if len(s) < 3 {
		return 0, false
	}
	for i, name := range weekdays {
		if strings.HasPrefix(name, s) {
			return i, true
		}
	}
	return 0, false
}

// DayName returns days[idx] when in range, else the decimal index.
func DayName(days []string, idx int) string {
	if idx >= 0 && idx < len(days) {
		return days[idx]
	}
	return strconv.Itoa(idx)
}

// TimeLabel returns the normalized times[idx] when in range, else the decimal index.
func TimeLabel(times []string, idx int) string {
	if idx >= 0 && idx < len(times) {
		return NormalizeHHMM(times[idx])
	}
	return strconv.Itoa(idx)
}

// NormalizeName trims, collapses inner whitespace and lower-cases s.
func NormalizeName(s string) string {
	return strings.ToLower(reSpaceRuns.ReplaceAllString(strings.TrimSpace(s), " "))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
