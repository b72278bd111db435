package store

import "time"

// dbTimeLayout is fixed-width so text ordering matches time ordering.
const dbTimeLayout = "2006-01-02T15:04:05.000000000Z"

func dbFormatTime(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

func dbParseTime(value string) (time.Time, error) {
	t, err := time.Parse(dbTimeLayout, value)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

// TimePrecision is the finest timestamp resolution every backend keeps.
// Mongo stores milliseconds; Postgres and SQLite keep at least that.
const TimePrecision = time.Millisecond

// Now returns the current UTC time at TimePrecision.
func Now() time.Time {
	return Truncate(time.Now())
}

// Truncate brings t to UTC at TimePrecision.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(TimePrecision)
}
