package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// NewStruct binds a row type to the Postgres flavor
func NewStruct(v any) *sqlbuilder.Struct {
	return sqlbuilder.NewStruct(v).For(sqlbuilder.PostgreSQL)
}

// OnConflictDoNothing turns an insert into a no-op when any unique index matches
func OnConflictDoNothing(ib *sqlbuilder.InsertBuilder) *sqlbuilder.InsertBuilder {
	ib.SQL("ON CONFLICT DO NOTHING")
	return ib
}

// Strings converts ids to builder arguments
func Strings(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// IsNoRows reports whether a Get found nothing
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint failure
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// NullString maps "" to NULL
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullStringPtr maps nil and "" to NULL
func NullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return NullString(*s)
}

// StringPtr maps NULL to nil
func StringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// TimePtr maps NULL to nil
func TimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// NullTime maps nil to NULL
func NullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// IsForeignKeyViolation reports whether err is a Postgres foreign key failure
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}
