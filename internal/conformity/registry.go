package conformity

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownType = errors.New("unknown conformity type")

// Fetcher loads an entity by id and fails when it does not exist.
type Fetcher func(ctx context.Context, id string) (any, error)

// Registry maps a type tag ("deal", "customer", ...) to the lookup of its own storage.
// It is built once by the caller and handed to New.
type Registry map[string]Fetcher

func (r Registry) Fetch(ctx context.Context, typ, id string) (any, error) {
	fetch, ok := r[typ]
	if !ok || fetch == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	return fetch(ctx, id)
}

// Types lists the registered type tags, sorted.
func (r Registry) Types() []string {
	out := make([]string, 0, len(r))
	for typ := range r {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}
