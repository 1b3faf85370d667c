package config

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidValue     = errors.New("config value invalid")
	ErrConfigLoadFailed = errors.New("failed to load configuration")

	// ErrConfigExists is returned by Init rather than overwrite an existing file.
	ErrConfigExists = errors.New("config file already exists")
)

// NewErrInvalidValue returns an error for an invalid configuration value, such as a malformed duration.
func NewErrInvalidValue(key string, value string) error {
	return fmt.Errorf("%w: %s '%s'", ErrInvalidValue, key, value)
}
