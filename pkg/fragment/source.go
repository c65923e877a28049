package fragment

import (
	"context"

	"github.com/vango-dev/behave/internal/errors"
)

// Source fetches markup or JSON by key.
type Source interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ctx context.Context, key string) ([]byte, error)

// Fetch implements Source.
func (f SourceFunc) Fetch(ctx context.Context, key string) ([]byte, error) {
	return f(ctx, key)
}

// ErrNotFound matches, via errors.Is, every error a Source returns for a
// missing key.
var ErrNotFound error = errors.New("E141")

func notFound(key string) error {
	return errors.New("E141").WithDetail("No fragment exists for key " + key + ".")
}

func fetchFailed(key string, err error) error {
	return errors.New("E140").
		WithDetail("Fetching " + key + " failed.").
		Wrap(err)
}

// Static is an in-memory Source.
type Static map[string][]byte

// Fetch implements Source.
func (s Static) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fetchFailed(key, err)
	}
	body, ok := s[key]
	if !ok {
		return nil, notFound(key)
	}
	return append([]byte(nil), body...), nil
}
