// Package repository hides gorm behind a small capability set so services
// only see FindByID, FindByFilter, Count, Save and Delete.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Wikid82/scirius/backend/internal/database"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Filter narrows FindByFilter and Count. Column names come from code, never
// from request input.
type Filter struct {
	Where map[string]interface{}
	// Contains maps a column to a case-insensitive substring match.
	Contains map[string]string
	Order    string
	Preload  []string
	Offset   int
	Limit    int
}

// Repository is the storage capability set used by services.
type Repository[T any] interface {
	FindByID(ctx context.Context, id uint, preload ...string) (*T, error)
	FindByFilter(ctx context.Context, f Filter) ([]T, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Save(ctx context.Context, v *T) error
	Delete(ctx context.Context, id uint) error
}

// Gorm implements Repository for any gorm model.
type Gorm[T any] struct {
	db *gorm.DB
}

// New returns a gorm-backed repository for T.
func New[T any](db *gorm.DB) *Gorm[T] {
	return &Gorm[T]{db: db}
}

func (r *Gorm[T]) FindByID(ctx context.Context, id uint, preload ...string) (*T, error) {
	var v T
	q := r.db.WithContext(ctx)
	for _, p := range preload {
		q = q.Preload(p)
	}
	if err := q.First(&v, id).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (r *Gorm[T]) FindByFilter(ctx context.Context, f Filter) ([]T, error) {
	var out []T
	q := apply(r.db.WithContext(ctx).Model(new(T)), f)
	for _, p := range f.Preload {
		q = q.Preload(p)
	}
	if f.Order != "" {
		q = q.Order(f.Order)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (r *Gorm[T]) Count(ctx context.Context, f Filter) (int64, error) {
	var n int64
	if err := apply(r.db.WithContext(ctx).Model(new(T)), f).Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (r *Gorm[T]) Save(ctx context.Context, v *T) error {
	return translate(r.db.WithContext(ctx).Save(v).Error)
}

func (r *Gorm[T]) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(new(T), id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func apply(q *gorm.DB, f Filter) *gorm.DB {
	if len(f.Where) > 0 {
		q = q.Where(f.Where)
	}
	for col, term := range f.Contains {
		q = q.Where(fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '\\'", col), "%"+likeEscaper.Replace(strings.ToLower(term))+"%")
	}
	return q
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case database.IsDuplicate(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}
