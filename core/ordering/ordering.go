// Package ordering persists user-controlled display order of scoped collections
// (courses of a user, assignments of a course).
//
// Items are listed by sort order, highest first. A submitted list of ids gives the first id the
// highest sort order (len(ids)) and the last one 1. New items are placed on top with max+1.
package ordering

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/markbook/core"
)

// Collection is a scoped, ordered set of items in storage.
type Collection interface {
	// LockScope prevents concurrent reorders of the same scope until the surrounding
	// transaction ends.
	LockScope(ctx context.Context, scopeID int64) error

	// SetSortOrder updates the sort order of item id if, and only if, it belongs to scopeID.
	// applied is false when no such item exists in the scope.
	SetSortOrder(ctx context.Context, scopeID, id int64, sortOrder int) (applied bool, err error)
}

// Position is the sort order assigned to an item.
type Position struct {
	ID        int64
	SortOrder int
}

// Positions assigns sortOrder = len(ids) - index to each id.
func Positions(ids []int64) []Position {
	n := len(ids)
	pos := make([]Position, 0, n)
	for i, id := range ids {
		pos = append(pos, Position{ID: id, SortOrder: n - i})
	}
	return pos
}

// Next returns the sort order placing a new item on top of a scope whose current max is max.
func Next(max int) int {
	return max + 1
}

// Apply persists ids as the new order of the scope, all or nothing.
//
// Ids that are not in the scope are skipped and only reduce the applied count: an item deleted
// while the user was dragging must not fail the whole reorder. Ids missing from the list keep
// their sort order. Any storage failure rolls back every update and is returned as a
// *core.StorageError; resubmitting the same list is safe.
func Apply(ctx context.Context, tx core.Transactor, coll Collection, scopeID int64, ids []int64) (int, error) {
	var applied int
	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		applied = 0
		if err := coll.LockScope(ctx, scopeID); err != nil {
			return errors.Wrap(err, "locking scope")
		}
		for _, p := range Positions(ids) {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := coll.SetSortOrder(ctx, scopeID, p.ID, p.SortOrder)
			if err != nil {
				return errors.Wrapf(err, "setting sort order of %d", p.ID)
			}
			if ok {
				applied++
			}
		}
		return nil
	})
	if err != nil {
		return 0, core.NewStorageError("applying order", err)
	}
	return applied, nil
}
