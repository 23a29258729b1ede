package services

// EditCommand changes the composition of a ruleset. Implementations are
// SetCategories and RemoveSuppressed.
type EditCommand interface {
	editCommand()
}

// SetCategories replaces the whole category selection. Source is the pinned
// source version the selection was made from.
type SetCategories struct {
	Source     uint   `json:"source" binding:"required"`
	Categories []uint `json:"categories"`
}

// RemoveSuppressed lifts the suppression of the given rule pks.
type RemoveSuppressed struct {
	Rules []uint `json:"rules" binding:"required"`
}

func (SetCategories) editCommand()    {}
func (RemoveSuppressed) editCommand() {}

// SuppressionCommand searches for or suppresses rules of a ruleset.
// Implementations are SearchRules and SuppressRules.
type SuppressionCommand interface {
	suppressionCommand()
}

// SearchRules finds rules whose content contains Query, case-insensitively.
type SearchRules struct {
	Query string `json:"query" binding:"required"`
}

// SuppressRules adds the given rule pks to the suppression set.
type SuppressRules struct {
	Rules []uint `json:"rules" binding:"required"`
}

func (SearchRules) suppressionCommand()   {}
func (SuppressRules) suppressionCommand() {}
