package stores

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/daybook/internal/core/task"
)

// marshalJSON encodes v for a nullable TEXT column. Empty slices and maps
// are stored as NULL.
func marshalJSON(v any) (sql.NullString, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return sql.NullString{}, nil
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		if rv.Len() == 0 {
			return sql.NullString{}, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalJSON decodes a nullable TEXT column into dest. Malformed data is
// logged and leaves dest at its zero value; the row is still usable.
func unmarshalJSON[T any](log zerolog.Logger, field string, raw sql.NullString, dest *T) {
	if !raw.Valid || raw.String == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw.String), dest); err != nil {
		var zero T
		*dest = zero
		dataErr := &task.DataError{Field: field, Raw: raw.String, Err: err}
		log.Warn().Err(dataErr).Str("field", field).Msg("malformed stored value, using neutral default")
	}
}

func toNullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullTime(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64)
	return &t
}

func toNullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func fromNullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// formatDate stores a civil date as YYYY-MM-DD.
func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// parseDate reads a civil date back as local midnight.
func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
