package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Base is embedded by the gorm repositories. Its handle is either the pool
// or, after Bind, a transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB scopes the handle to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bind returns a copy running on tx. A nil tx keeps the current handle.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// FirstOrNil runs First and reports a missing row as (nil, nil).
func FirstOrNil[T any](query *gorm.DB) (*T, error) {
	var row T
	err := query.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike lowercases s and escapes LIKE wildcards. Pair it with
// ESCAPE '\' in the query.
func EscapeLike(s string) string {
	return strings.ToLower(likeEscaper.Replace(strings.TrimSpace(s)))
}
