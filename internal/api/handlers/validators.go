package handlers

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var rulesetNamePattern = regexp.MustCompile(`^[^\x00-\x1F\x7F]{1,100}$`)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom binding tags on gin's validator.
// Safe to call more than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		registerErr = v.RegisterValidation("rulesetname", validRulesetName)
	})
	return registerErr
}

// validRulesetName accepts 1 to 100 printable characters, not all blank.
func validRulesetName(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return strings.TrimSpace(s) != "" && rulesetNamePattern.MatchString(s)
}
