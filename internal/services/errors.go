package services

import (
	"errors"
	"fmt"

	"github.com/Wikid82/scirius/backend/internal/repository"
)

// Lookup failures wrap repository.ErrNotFound so callers can match either.
var (
	ErrSourceNotFound        = fmt.Errorf("source %w", repository.ErrNotFound)
	ErrSourceVersionNotFound = fmt.Errorf("source version %w", repository.ErrNotFound)
	ErrCategoryNotFound      = fmt.Errorf("category %w", repository.ErrNotFound)
	ErrRuleNotFound          = fmt.Errorf("rule %w", repository.ErrNotFound)
	ErrRulesetNotFound       = fmt.Errorf("ruleset %w", repository.ErrNotFound)
)

var (
	ErrSourceNameConflict  = fmt.Errorf("source name %w", repository.ErrDuplicate)
	ErrRulesetNameConflict = fmt.Errorf("ruleset name %w", repository.ErrDuplicate)

	ErrInvalidSource        = errors.New("invalid source")
	ErrCategoryNotInRuleset = errors.New("category does not belong to a source of the ruleset")
	ErrSourceNotInRuleset   = errors.New("source is not part of the ruleset")
	ErrUnknownCommand       = errors.New("unknown command")
)

// notFound maps a repository miss to the given sentinel and leaves other
// errors untouched.
func notFound(err, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}

// conflict maps a repository duplicate to the given sentinel.
func conflict(err, sentinel error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return sentinel
	}
	return err
}
