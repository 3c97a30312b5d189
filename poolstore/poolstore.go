// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package poolstore persists the pool state in a kv store.
package poolstore

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/kv"
	"github.com/vechain/stakepool/stakepool"
	"github.com/vechain/stakepool/stakepool/registry"
	"github.com/vechain/stakepool/stakepool/validator"
)

const bucket = kv.Bucket("pool/")

var (
	headerKey     = []byte("header")
	validatorsKey = []byte("validators")
)

// Saver is state written in the same batch as the pool, such as a
// simulated chain or share ledger.
type Saver interface {
	Save(w kv.Putter) error
}

type validatorList struct {
	Capacity uint32
	Entries  []validator.Entry
}

// Store implements stakepool.Store.
type Store struct {
	db       kv.Store
	attached []Saver
}

var _ stakepool.Store = (*Store)(nil)

// New creates a store over db. The attached savers are committed atomically
// with every pool state.
func New(db kv.Store, attached ...Saver) *Store {
	return &Store{db: db, attached: attached}
}

// Load reads the pool state, or returns nil if none was saved.
func (s *Store) Load() (*stakepool.State, error) {
	r := bucket.NewGetter(s.db)

	data, err := r.Get(headerKey)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read header")
	}
	var state stakepool.State
	if err := rlp.DecodeBytes(data, &state.Header); err != nil {
		return nil, errors.Wrap(err, "decode header")
	}

	compressed, err := r.Get(validatorsKey)
	if err != nil {
		return nil, errors.Wrap(err, "read validators")
	}
	data, err = snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.Wrap(err, "decompress validators")
	}
	var list validatorList
	if err := rlp.DecodeBytes(data, &list); err != nil {
		return nil, errors.Wrap(err, "decode validators")
	}
	if state.Validators, err = registry.FromEntries(list.Capacity, list.Entries); err != nil {
		return nil, errors.Wrap(err, "rebuild validators")
	}
	return &state, nil
}

// Save writes state and every attached saver in one batch.
func (s *Store) Save(state *stakepool.State) error {
	batch := s.db.NewBatch()
	w := bucket.NewPutter(batch)

	header, err := rlp.EncodeToBytes(&state.Header)
	if err != nil {
		return errors.Wrap(err, "encode header")
	}
	data, err := rlp.EncodeToBytes(&validatorList{
		Capacity: state.Validators.Cap(),
		Entries:  state.Validators.Entries(),
	})
	if err != nil {
		return errors.Wrap(err, "encode validators")
	}
	if err := w.Put(headerKey, header); err != nil {
		return err
	}
	if err := w.Put(validatorsKey, snappy.Encode(nil, data)); err != nil {
		return err
	}
	if err := s.saveAttached(batch); err != nil {
		return err
	}
	return batch.Write()
}

// Flush writes the attached savers alone, for changes made outside the pool.
func (s *Store) Flush() error {
	batch := s.db.NewBatch()
	if err := s.saveAttached(batch); err != nil {
		return err
	}
	return batch.Write()
}

func (s *Store) saveAttached(w kv.Putter) error {
	for _, a := range s.attached {
		if err := a.Save(w); err != nil {
			return err
		}
	}
	return nil
}
