package calendar

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

var Months = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// Days is indexed Monday-first to match how weeks are spoken ("this week"
// runs to Sunday).
var Days = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

var dayExtensions = []string{"rd", "th", "st", "nd"}

// WeekdayIndex maps a time onto the Monday-first Days indexing.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Midnight truncates a time to its civil date.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// GetDate resolves a spoken phrase to a calendar date relative to now.
//
// Recognized forms: "today"/"tomorrow"; a month name, weekday name, or bare
// day number (with optional ordinal suffix), in any combination. A month
// earlier than the current one rolls to next year; a bare day earlier than
// today rolls to next month; a bare weekday resolves to its next
// occurrence, one week later again when the phrase says "next". Defaults
// to today.
func GetDate(text string, now time.Time) time.Time {
	text = strings.ToLower(text)
	today := Midnight(now)

	if strings.Contains(text, "today") {
		return today
	}
	if strings.Contains(text, "tomorrow") {
		return today.AddDate(0, 0, 1)
	}

	day := -1
	dayOfWeek := -1
	month := -1
	year := today.Year()

	// Digits next to a meridiem marker are clock times, not dates.
	hasMeridiem := strings.Contains(text, "a.m") || strings.Contains(text, "p.m.")

	for _, word := range strings.Fields(text) {
		if i := slices.Index(Months, word); i >= 0 {
			month = i + 1
		} else if i := slices.Index(Days, word); i >= 0 {
			dayOfWeek = i
		} else if isDigits(word) && !hasMeridiem {
			day, _ = strconv.Atoi(word)
		} else {
			for _, ext := range dayExtensions {
				if found := strings.Index(word, ext); found > 0 {
					if parsed, err := strconv.Atoi(word[:found]); err == nil {
						day = parsed
					}
				}
			}
		}
	}

	// A month already behind us means next year.
	if month != -1 && month < int(today.Month()) {
		year++
	}

	if month == -1 && day != -1 {
		if day < today.Day() {
			month = int(today.Month()) + 1
		} else {
			month = int(today.Month())
		}
	}

	if month == -1 && day == -1 && dayOfWeek != -1 {
		offset := (dayOfWeek - WeekdayIndex(today)) % 7
		if offset < 0 {
			offset += 7
		}
		if strings.Contains(text, "next") {
			offset += 7
		}
		return today.AddDate(0, 0, offset)
	}

	if day != -1 {
		// time.Date normalizes a month 13 December rollover into January.
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
	}

	return today
}

// GetWeek resolves a spoken phrase to a week span: "this" week runs today
// through the upcoming Sunday, "next" week the following Monday through
// its Sunday. Defaults to this week.
func GetWeek(text string, now time.Time) (time.Time, time.Time) {
	text = strings.ToLower(text)
	today := Midnight(now)
	weekday := WeekdayIndex(today)

	if strings.Contains(text, "next") && !strings.Contains(text, "this") {
		daysAhead := 7 - weekday
		return today.AddDate(0, 0, daysAhead), today.AddDate(0, 0, 6+daysAhead)
	}

	return today, today.AddDate(0, 0, 6-weekday)
}

// ContainsWeekday reports whether the phrase names a concrete day, which
// disambiguates a day request from a week request.
func ContainsWeekday(text string) bool {
	text = strings.ToLower(text)
	for _, day := range Days {
		if strings.Contains(text, day) {
			return true
		}
	}
	return strings.Contains(text, "today") ||
		strings.Contains(text, "tomorrow") ||
		strings.Contains(text, "yesterday")
}

func isDigits(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
