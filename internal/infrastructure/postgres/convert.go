package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"cloud.google.com/go/civil"
)

// DATE columns are sent as ISO strings and read back as midnight UTC, so the
// calendar day never passes through a local zone.

func dateArg(d civil.Date) string {
	return d.String()
}

func nullDateArg(d *civil.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func fromNullDate(t sql.NullTime) *civil.Date {
	if !t.Valid {
		return nil
	}
	d := civil.DateOf(t.Time)
	return &d
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// jsonArg sends a JSON blob as text so the driver does not encode it as bytea.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
