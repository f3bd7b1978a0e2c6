package scheduler

import "strings"

// Weekday identifies a day of the week in the maintenance calendar.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays lists every weekday in calendar order.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// ParseWeekday normalizes and validates a weekday name.
func ParseWeekday(value string) (Weekday, bool) {
	switch Weekday(strings.ToLower(strings.TrimSpace(value))) {
	case Monday:
		return Monday, true
	case Tuesday:
		return Tuesday, true
	case Wednesday:
		return Wednesday, true
	case Thursday:
		return Thursday, true
	case Friday:
		return Friday, true
	case Saturday:
		return Saturday, true
	case Sunday:
		return Sunday, true
	}
	return "", false
}

// Valid reports whether the weekday is one of the seven known values.
func (d Weekday) Valid() bool {
	_, ok := ParseWeekday(string(d))
	return ok
}
