package manipulator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var ErrBadImage = errors.New("manipulator bad image provided")
var ErrTransformationFailed = errors.New("manipulator transformation failed")
var ErrBadTransformationRequest = errors.New("manipulator bad transformation request")
var ErrUnknownField = errors.New("manipulator unknown edit field")
var ErrUnknownPreset = errors.New("manipulator unknown preset")

type ValidationError struct {
	errors map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{errors: make(map[string]string)}
}

func (err *ValidationError) Add(k, v string) {
	err.errors[k] = v
}

func (err *ValidationError) Empty() bool {
	return len(err.errors) == 0
}

func (err *ValidationError) Error() string {
	keys := make([]string, 0, len(err.errors))
	for k := range err.errors {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, err.errors[k]))
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

func (err *ValidationError) Errors() map[string]string {
	return err.errors
}
