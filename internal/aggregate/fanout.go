package aggregate

import (
	"context"
	"net/url"

	"golang.org/x/sync/errgroup"

	"attendgate/internal/registry"
)

// fanOut issues one concurrent call per target with all-settled semantics.
// Workers classify their own failures and return nil, so no target's outcome
// cancels or fails a sibling; the group only bounds parallelism and joins.
// Results come back indexed by target, but callers must not read any ordering
// into the merge.
func fanOut[T any](ctx context.Context, c *Client, targets []*registry.Target, endpoint string, params url.Values) []Result[T] {
	results := make([]Result[T], len(targets))

	g := new(errgroup.Group)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			results[i] = Call[T](ctx, c, target, endpoint, params)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// merge folds the succeeding results into a Merged collection using extract
// to pull and tag the entities from each decoded payload.
func merge[P, T any](results []Result[P], extract func(P, BackendTag) []T) Merged[T] {
	var m Merged[T]
	seenPlaces := make(map[string]struct{})

	for _, r := range results {
		if !r.OK() {
			m.Failures = append(m.Failures, *r.Err)
			continue
		}
		m.BackendSources = append(m.BackendSources, r.Backend.BackendName)
		if _, ok := seenPlaces[r.Backend.PlaceLocation]; !ok {
			seenPlaces[r.Backend.PlaceLocation] = struct{}{}
			m.Places = append(m.Places, r.Backend.PlaceLocation)
		}
		m.Items = append(m.Items, extract(r.Value, r.Backend)...)
	}

	return m
}
