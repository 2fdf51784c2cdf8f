package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pable/go-cs-coach/internal/errs"
)

// ErrLoadConfig wraps failures reading a config source.
var ErrLoadConfig = errors.New("load config failed")

// ValidationError describes one invalid or missing key.
type ValidationError struct {
	Key     string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e ValidationErrors) asError() error {
	if len(e) == 0 {
		return nil
	}
	return errors.Join(errs.ErrConfiguration, e)
}
