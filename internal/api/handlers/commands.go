package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/Wikid82/scirius/backend/internal/services"
)

// Command actions accepted in the "action" field of a request body.
const (
	ActionSetCategories    = "set_categories"
	ActionRemoveSuppressed = "remove_suppressed"
	ActionSearch           = "search"
	ActionSuppress         = "suppress"
)

type commandEnvelope struct {
	Action string `json:"action"`
}

// decodeCommand reads the body once, picks the variant named by "action"
// and validates it.
func decodeCommand(c *gin.Context, variants map[string]func() interface{}) (interface{}, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	var env commandEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	newCmd, ok := variants[env.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", services.ErrUnknownCommand, env.Action)
	}
	cmd := newCmd()
	if err := json.Unmarshal(raw, cmd); err != nil {
		return nil, err
	}
	if err := binding.Validator.ValidateStruct(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeEditCommand(c *gin.Context) (services.EditCommand, error) {
	cmd, err := decodeCommand(c, map[string]func() interface{}{
		ActionSetCategories:    func() interface{} { return &services.SetCategories{} },
		ActionRemoveSuppressed: func() interface{} { return &services.RemoveSuppressed{} },
	})
	if err != nil {
		return nil, err
	}
	switch v := cmd.(type) {
	case *services.SetCategories:
		return *v, nil
	case *services.RemoveSuppressed:
		return *v, nil
	}
	return nil, services.ErrUnknownCommand
}

func decodeSuppressionCommand(c *gin.Context) (services.SuppressionCommand, error) {
	cmd, err := decodeCommand(c, map[string]func() interface{}{
		ActionSearch:   func() interface{} { return &services.SearchRules{} },
		ActionSuppress: func() interface{} { return &services.SuppressRules{} },
	})
	if err != nil {
		return nil, err
	}
	switch v := cmd.(type) {
	case *services.SearchRules:
		return *v, nil
	case *services.SuppressRules:
		return *v, nil
	}
	return nil, services.ErrUnknownCommand
}
