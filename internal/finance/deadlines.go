package finance

import "time"

// Deadline is a fixed yearly filing date.
type Deadline struct {
	Month time.Month
	Day   int
	Event string
}

// Label renders the deadline as "Jan 31".
func (d Deadline) Label() string {
	return time.Date(2000, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format("Jan 2")
}

// Next returns the next occurrence on or after today.
func (d Deadline) Next(today time.Time) time.Time {
	y, m, day := today.Date()
	t := time.Date(y, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	if t.Before(time.Date(y, m, day, 0, 0, 0, 0, time.UTC)) {
		t = t.AddDate(1, 0, 0)
	}
	return t
}

// TaxDeadlines returns the business's filing calendar.
func TaxDeadlines() []Deadline {
	return []Deadline{
		{time.January, 31, "W2/1099 Deadlines"},
		{time.March, 15, "Personal Property Rendition"},
		{time.March, 16, "S-Corp Tax Return"},
		{time.April, 15, "Kansas State Tax"},
	}
}
