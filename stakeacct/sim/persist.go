// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sim

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/kv"
	"github.com/vechain/stakepool/stakeacct"
)

var snapshotKey = []byte("chain")

type snapshot struct {
	Epoch        uint64
	Distributing bool
	Params       stakeacct.Params
	Accounts     []stakeacct.Account
}

// Save writes the whole chain state under a single key.
func (c *Chain) Save(w kv.Putter) error {
	c.mu.Lock()
	s := snapshot{
		Epoch:        c.epoch,
		Distributing: c.distributing,
		Params:       c.params,
		Accounts:     make([]stakeacct.Account, 0, len(c.accounts)),
	}
	for _, acc := range c.accounts {
		s.Accounts = append(s.Accounts, *acc)
	}
	c.mu.Unlock()

	sort.Slice(s.Accounts, func(i, j int) bool {
		return bytes.Compare(s.Accounts[i].Address[:], s.Accounts[j].Address[:]) < 0
	})
	data, err := rlp.EncodeToBytes(&s)
	if err != nil {
		return errors.Wrap(err, "encode chain")
	}
	return w.Put(snapshotKey, data)
}

// Load restores a chain saved by Save. It returns nil if nothing was saved.
func Load(r kv.Getter) (*Chain, error) {
	data, err := r.Get(snapshotKey)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read chain")
	}
	var s snapshot
	if err := rlp.DecodeBytes(data, &s); err != nil {
		return nil, errors.Wrap(err, "decode chain")
	}
	c := New(s.Params, s.Epoch)
	c.distributing = s.Distributing
	for i := range s.Accounts {
		acc := s.Accounts[i]
		c.accounts[acc.Address] = &acc
	}
	return c, nil
}
