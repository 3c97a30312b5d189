// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry holds the pool's validator entries in a dense, ordered,
// fixed capacity list. Batched epoch updates address entries by position.
package registry

import (
	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool/validator"
)

var (
	ErrFull             = reverts.New(reverts.KindState, "validator list is full")
	ErrAlreadyAdded     = reverts.New(reverts.KindState, "validator already added")
	ErrInvalidCapacity  = reverts.New(reverts.KindState, "validator list capacity must be positive")
	ErrCapacityTooSmall = reverts.New(reverts.KindState, "validator list capacity below current size")
)

// Registry is an ordered list of validator entries, at most Cap long.
type Registry struct {
	capacity uint32
	entries  []*validator.Entry
}

// New creates an empty registry.
func New(capacity uint32) (*Registry, error) {
	if capacity == 0 {
		return nil, ErrInvalidCapacity
	}
	return &Registry{capacity: capacity}, nil
}

// FromEntries rebuilds a registry from stored entries.
func FromEntries(capacity uint32, entries []validator.Entry) (*Registry, error) {
	r, err := New(capacity)
	if err != nil {
		return nil, err
	}
	if len(entries) > int(capacity) {
		return nil, ErrCapacityTooSmall
	}
	for i := range entries {
		if err := r.Add(&entries[i]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Len() int    { return len(r.entries) }
func (r *Registry) Cap() uint32 { return r.capacity }

// Add appends an entry. Ids are unique.
func (r *Registry) Add(e *validator.Entry) error {
	if len(r.entries) >= int(r.capacity) {
		return ErrFull
	}
	if _, found := r.Find(e.VoteID); found != nil {
		return ErrAlreadyAdded
	}
	cpy := *e
	r.entries = append(r.entries, &cpy)
	return nil
}

// Find returns the position and entry for the vote id, nil if absent.
func (r *Registry) Find(vote pubkey.Pubkey) (int, *validator.Entry) {
	for i, e := range r.entries {
		if e.VoteID == vote {
			return i, e
		}
	}
	return -1, nil
}

// At returns the entry at position i.
func (r *Registry) At(i int) *validator.Entry {
	return r.entries[i]
}

// Window returns the positions [start, start+n) clipped to the list length.
func (r *Registry) Window(start, n int) (from, to int) {
	if start < 0 {
		start = 0
	}
	if start > len(r.entries) {
		start = len(r.entries)
	}
	to = start + n
	if n < 0 || to > len(r.entries) {
		to = len(r.entries)
	}
	return start, to
}

// Each calls fn for every entry in order until fn returns false.
func (r *Registry) Each(fn func(i int, e *validator.Entry) bool) {
	for i, e := range r.entries {
		if !fn(i, e) {
			return
		}
	}
}

// RemoveIf deletes entries matching pred, keeping the order of the rest,
// and returns the removed ones.
func (r *Registry) RemoveIf(pred func(e *validator.Entry) bool) []*validator.Entry {
	var removed []*validator.Entry
	kept := r.entries[:0]
	for _, e := range r.entries {
		if pred(e) {
			removed = append(removed, e)
		} else {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(r.entries); i++ {
		r.entries[i] = nil
	}
	r.entries = kept
	return removed
}

// Entries returns copies of all entries in order.
func (r *Registry) Entries() []validator.Entry {
	out := make([]validator.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out
}

// Clone returns a deep copy.
func (r *Registry) Clone() *Registry {
	cpy := &Registry{
		capacity: r.capacity,
		entries:  make([]*validator.Entry, 0, len(r.entries)),
	}
	for _, e := range r.entries {
		ec := *e
		cpy.entries = append(cpy.entries, &ec)
	}
	return cpy
}
