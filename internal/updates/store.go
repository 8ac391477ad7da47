// Package updates holds the per-restaurant "data changed" flags that connect
// webhook writers to open notification streams.
package updates

import "context"

// FlagStore marks restaurants as having pending updates.
//
// Take must test and clear in one atomic step: two pollers racing on the same
// Set must see exactly one true between them.
type FlagStore interface {
	Set(ctx context.Context, restaurantID string) error
	Take(ctx context.Context, restaurantID string) (bool, error)
}
