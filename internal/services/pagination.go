package services

import (
	"context"

	"github.com/Wikid82/scirius/backend/internal/repository"
)

// DefaultPerPage and MaxPerPage bound listing pages.
const (
	DefaultPerPage = 25
	MaxPerPage     = 200
)

// Page selects a 1-based page of a listing.
type Page struct {
	Number  int
	PerPage int
}

// Normalize clamps the page to valid bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func (p Page) offset() int {
	return (p.Number - 1) * p.PerPage
}

// Listing is one page of results plus the total count.
type Listing[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

func paginate[T any](ctx context.Context, repo repository.Repository[T], f repository.Filter, page Page) (*Listing[T], error) {
	page = page.Normalize()
	total, err := repo.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	f.Offset = page.offset()
	f.Limit = page.PerPage
	items, err := repo.FindByFilter(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return &Listing[T]{Items: items, Total: total, Page: page.Number, PerPage: page.PerPage}, nil
}
