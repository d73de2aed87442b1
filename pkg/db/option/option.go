package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

const (
	ASC  = "ASC"
	DESC = "DESC"
)

// WithSortBy orders by column; direction defaults to ASC.
func WithSortBy(column, direction string) QueryOption {
	direction = strings.ToUpper(strings.TrimSpace(direction))
	if direction != DESC {
		direction = ASC
	}
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order(fmt.Sprintf("%s %s", column, direction))
	})
}

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

func WithOffset(offset int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if offset <= 0 {
			return db
		}
		return db.Offset(offset)
	})
}

// WithWhere appends a raw condition.
func WithWhere(query string, args ...any) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

// WithScopes applies reusable gorm scopes.
func WithScopes(scopes ...func(*gorm.DB) *gorm.DB) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Scopes(scopes...)
	})
}
