package repository

import "time"

// nullableTime maps the zero time to SQL NULL
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// nullableString maps the empty string to SQL NULL
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
