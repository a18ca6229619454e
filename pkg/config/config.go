// Package config provides runtime tunables that can be sourced from the
// environment or set in code, with typed wrappers that fall back to defaults.
package config

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNoValue  = errors.New("config: no value set")
	ErrShutdown = errors.New("config: shutdown")
)

// Config is an untyped configuration source
type Config interface {
	// Get returns the current value, or ErrNoValue if none is set
	Get(ctx context.Context) (interface{}, error)

	Shutdown()
}

// Typed is a Config whose values are converted to T. Get never fails and
// falls back to the last good value or the default, while GetSafe surfaces
// the underlying error alongside that value.
type Typed[T any] interface {
	Get(ctx context.Context) T
	GetSafe(ctx context.Context) (T, error)
	Shutdown()
}

type (
	Bool    = Typed[bool]
	Float64 = Typed[float64]
	Uint64  = Typed[uint64]
)
