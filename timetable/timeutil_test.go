package timetable

import "testing"

func TestNormalizeHHMM(t *testing.T) {
	cases := map[string]string{
		"9:15":           "09:15",
		"09:15":          "09:15",
		"09:15:00":       "09:15",
		"09:15:00.123":   "09:15",
		"0915":           "09:15",
		"915":            "09:15",
		"9.15":           "09:15",
		" 10:00 ":        "10:00",
		"starts at 9:30": "09:30",
		"noon":           "noon",
		"":               "",
		"3":              "3",
		"9999":           "9999",
		"25:00":          "25:00",
		"12:75":          "12:75",
		"23:59:59":       "23:59",
		"at 24:10":       "at 24:10",
	}
	for in, want := range cases {
		if got := NormalizeHHMM(in); got != want {
			t.Errorf("NormalizeHHMM(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDayIndex(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"Monday", 0, true},
		{"MON", 0, true},
		{"tue", 1, true},
		{"Thurs", 3, true},
		{"sunday", 6, true},
		{"3", 3, true},
		{" 0 ", 0, true},
		{"mo", 0, false},
		{"funday", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := DayIndex(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("DayIndex(%q) = %d, %v; want %d, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestDayNameAndTimeLabelFallback(t *testing.T) {
	days := []string{"Monday"}
	if got := DayName(days, 0); got != "Monday" {
		t.Errorf("DayName(0) = %q", got)
	}
	if got := DayName(days, 4); got != "4" {
		t.Errorf("DayName(4) = %q", got)
	}
	times := []string{"9:00"}
	if got := TimeLabel(times, 0); got != "09:00" {
		t.Errorf("TimeLabel(0) = %q", got)
	}
	if got := TimeLabel(times, 2); got != "2" {
		t.Errorf("TimeLabel(2) = %q", got)
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  Dr.   Alice\tSMITH "); got != "dr. alice smith" {
		t.Errorf("NormalizeName = %q", got)
	}
}
