// internal/database/collection.go
package database

import (
	"context"
	"fmt"
)

// entity is satisfied by pointers to the record types.
type entity[T any] interface {
	*T
	Fielder
	meta() *Meta
}

// Patch merges a partial field set into a record.
type Patch[T any] interface {
	Apply(*T)
}

// PatchFunc adapts a plain function to Patch.
type PatchFunc[T any] func(*T)

func (f PatchFunc[T]) Apply(v *T) { f(v) }

// checkFunc validates candidate against the rest of the collection. before
// is nil on create; self is the candidate's index, or -1 on create.
type checkFunc[T any] func(rows []T, before, candidate *T, self int) error

// Collection provides the generic query and mutation operations over one
// named collection of the store.
type Collection[T any, P entity[T]] struct {
	store *Store
	name  string
	rows  func(*Snapshot) *[]T
	check checkFunc[T]
}

func (c *Collection[T, P]) Name() string { return c.name }

// Count returns the number of records matching where.
func (c *Collection[T, P]) Count(ctx context.Context, where Where) (int, error) {
	n := 0
	err := c.store.read(ctx, c.name, "count", func(snap *Snapshot) error {
		for _, row := range *c.rows(snap) {
			if where.Matches(P(&row)) {
				n++
			}
		}
		return nil
	})
	return n, err
}

// FindMany returns the matching records in query order, or collection order
// when the query has no ordering.
func (c *Collection[T, P]) FindMany(ctx context.Context, q Query) ([]T, error) {
	var out []T
	err := c.store.read(ctx, c.name, "find_many", func(snap *Snapshot) error {
		out = c.query(snap, q)
		return nil
	})
	return out, err
}

// FindUnique returns the record matching where, or nil when there is none.
func (c *Collection[T, P]) FindUnique(ctx context.Context, where Where) (*T, error) {
	return c.first(ctx, "find_unique", where)
}

// FindFirst returns the first matching record in collection order, or nil.
func (c *Collection[T, P]) FindFirst(ctx context.Context, where Where) (*T, error) {
	return c.first(ctx, "find_first", where)
}

// Select returns the matching records projected onto sel.
func (c *Collection[T, P]) Select(ctx context.Context, q Query, sel Select) ([]Record, error) {
	var out []Record
	err := c.store.read(ctx, c.name, "select", func(snap *Snapshot) error {
		rows := c.query(snap, q)
		ptrs := make([]P, len(rows))
		for i := range rows {
			ptrs[i] = P(&rows[i])
		}
		out = Project(ptrs, sel)
		return nil
	})
	return out, err
}

// Create stores v with a fresh id (unless one is set) and both timestamps
// set to the same instant.
func (c *Collection[T, P]) Create(ctx context.Context, v T) (T, error) {
	err := c.store.write(ctx, c.name, "create", func(snap *Snapshot) ([]Change, error) {
		m := P(&v).meta()
		if m.ID == "" {
			m.ID = c.store.newID()
		}
		ts := c.store.timestamp()
		m.CreatedAt, m.UpdatedAt = ts, ts

		rows := c.rows(snap)
		if err := c.validate(*rows, nil, &v, -1); err != nil {
			return nil, err
		}
		*rows = append(*rows, v)
		return []Change{{Collection: c.name, Action: ActionCreate, ID: m.ID}}, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Update merges patch into the first record matching where and refreshes
// updatedAt. The id and createdAt are never changed.
func (c *Collection[T, P]) Update(ctx context.Context, where Where, patch Patch[T]) (T, error) {
	var updated T
	err := c.store.write(ctx, c.name, "update", func(snap *Snapshot) ([]Change, error) {
		rows := c.rows(snap)
		i := indexOf[T, P](*rows, where)
		if i < 0 {
			return nil, fmt.Errorf("%s: %w", c.name, ErrNotFound)
		}
		before := (*rows)[i]
		prev := *P(&before).meta()

		updated = before
		patch.Apply(&updated)
		m := P(&updated).meta()
		m.ID = prev.ID
		m.CreatedAt = prev.CreatedAt
		m.UpdatedAt = c.store.nextTimestamp(prev.UpdatedAt)

		if err := c.validate(*rows, &before, &updated, i); err != nil {
			return nil, err
		}
		(*rows)[i] = updated
		return []Change{{Collection: c.name, Action: ActionUpdate, ID: m.ID}}, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return updated, nil
}

// Delete removes the first record matching where and returns it.
func (c *Collection[T, P]) Delete(ctx context.Context, where Where) (T, error) {
	var removed T
	err := c.store.write(ctx, c.name, "delete", func(snap *Snapshot) ([]Change, error) {
		rows := c.rows(snap)
		i := indexOf[T, P](*rows, where)
		if i < 0 {
			return nil, fmt.Errorf("%s: %w", c.name, ErrNotFound)
		}
		removed = (*rows)[i]
		*rows = append((*rows)[:i], (*rows)[i+1:]...)
		return []Change{{Collection: c.name, Action: ActionDelete, ID: P(&removed).meta().ID}}, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return removed, nil
}

// DeleteMany removes every record matching where and returns how many were
// removed. Matching nothing is not an error.
func (c *Collection[T, P]) DeleteMany(ctx context.Context, where Where) (int, error) {
	n := 0
	err := c.store.write(ctx, c.name, "delete_many", func(snap *Snapshot) ([]Change, error) {
		var changes []Change
		changes, n = deleteMatching[T, P](c.rows(snap), c.name, where)
		return changes, nil
	})
	return n, err
}

func (c *Collection[T, P]) first(ctx context.Context, op string, where Where) (*T, error) {
	var found *T
	err := c.store.read(ctx, c.name, op, func(snap *Snapshot) error {
		rows := *c.rows(snap)
		if i := indexOf[T, P](rows, where); i >= 0 {
			v := rows[i]
			found = &v
		}
		return nil
	})
	return found, err
}

func (c *Collection[T, P]) query(snap *Snapshot, q Query) []T {
	rows := filterRows[T, P](*c.rows(snap), q.Where)
	sortRows[T, P](rows, q.OrderBy)
	return rows
}

func (c *Collection[T, P]) validate(rows []T, before, candidate *T, self int) error {
	id := P(candidate).meta().ID
	for i := range rows {
		if i != self && P(&rows[i]).meta().ID == id {
			return ErrDuplicateID
		}
	}
	if c.check == nil {
		return nil
	}
	return c.check(rows, before, candidate, self)
}

func deleteMatching[T any, P entity[T]](rows *[]T, collection string, where Where) ([]Change, int) {
	var changes []Change
	kept := (*rows)[:0]
	for _, row := range *rows {
		if where.Matches(P(&row)) {
			changes = append(changes, Change{Collection: collection, Action: ActionDelete, ID: P(&row).meta().ID})
			continue
		}
		kept = append(kept, row)
	}
	*rows = kept
	return changes, len(changes)
}
