package service

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"climatrack/internal/errors"
	"climatrack/internal/model"
)

// Clock returns the current time.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   model.Role
	IP     string
}

// authorize fails with Forbidden unless the actor holds one of roles.
func authorize(actor Actor, roles ...model.Role) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return errors.ErrForbidden
}

// storeError classifies a repository error: missing rows become NotFound with
// msg, unique violations Conflict, anything else Unavailable. Errors that are
// already classified pass through.
func storeError(err error, msg string) error {
	var classified *errors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &classified):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.NotFound(msg)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Conflict("resource already exists")
	default:
		return errors.Unavailable(err)
	}
}

// Page is one page of a listing.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// normalizePage clamps page/limit and returns the row offset.
func normalizePage(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit, (page - 1) * limit
}

func newPage[T any](data []T, total int64, page, limit int) *Page[T] {
	if data == nil {
		data = []T{}
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	return &Page[T]{Data: data, Total: total, Page: page, Limit: limit, TotalPages: pages}
}
