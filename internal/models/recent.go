package models

import "time"

// VisitedAtLayout matches the ISO-8601 form browsers emit from toISOString.
const VisitedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// RecentlyVisited is one entry of the recency cache. Show never carries an
// embedded bundle.
type RecentlyVisited struct {
	Show      Show   `json:"show"`
	VisitedAt string `json:"visitedAt"`
}

// FormatVisitedAt renders t in UTC using VisitedAtLayout.
func FormatVisitedAt(t time.Time) string {
	return t.UTC().Format(VisitedAtLayout)
}

// VisitedTime parses VisitedAt. Unparseable timestamps return the zero time.
func (r RecentlyVisited) VisitedTime() time.Time {
	t, err := time.Parse(time.RFC3339Nano, r.VisitedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
