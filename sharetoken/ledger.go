// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sharetoken

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/kv"
	"github.com/vechain/stakepool/pubkey"
)

var (
	ErrInsufficientBalance = errors.New("insufficient share balance")
	ErrSupplyOverflow      = errors.New("share supply overflow")
)

var _ Service = (*Ledger)(nil)

// Ledger keeps share balances in memory.
type Ledger struct {
	mu       sync.Mutex
	supply   uint64
	balances map[pubkey.Pubkey]uint64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[pubkey.Pubkey]uint64)}
}

func (l *Ledger) Mint(_ context.Context, to pubkey.Pubkey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	supply, overflow := math.SafeAdd(l.supply, amount)
	if overflow {
		return ErrSupplyOverflow
	}
	l.supply = supply
	l.balances[to] += amount
	return nil
}

func (l *Ledger) Burn(_ context.Context, from pubkey.Pubkey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return errors.WithMessage(ErrInsufficientBalance, from.String())
	}
	l.debit(from, amount)
	l.supply -= amount
	return nil
}

func (l *Ledger) Transfer(_ context.Context, from, to pubkey.Pubkey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return errors.WithMessage(ErrInsufficientBalance, from.String())
	}
	l.debit(from, amount)
	l.balances[to] += amount
	return nil
}

func (l *Ledger) BalanceOf(_ context.Context, owner pubkey.Pubkey) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[owner], nil
}

func (l *Ledger) Supply(context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply, nil
}

func (l *Ledger) debit(from pubkey.Pubkey, amount uint64) {
	if l.balances[from] == amount {
		delete(l.balances, from)
		return
	}
	l.balances[from] -= amount
}

var ledgerKey = []byte("ledger")

type holding struct {
	Owner   pubkey.Pubkey
	Balance uint64
}

// Save writes the ledger under a single key.
func (l *Ledger) Save(w kv.Putter) error {
	l.mu.Lock()
	holdings := make([]holding, 0, len(l.balances))
	for owner, bal := range l.balances {
		holdings = append(holdings, holding{owner, bal})
	}
	l.mu.Unlock()

	sort.Slice(holdings, func(i, j int) bool {
		return bytes.Compare(holdings[i].Owner[:], holdings[j].Owner[:]) < 0
	})
	data, err := rlp.EncodeToBytes(holdings)
	if err != nil {
		return errors.Wrap(err, "encode ledger")
	}
	return w.Put(ledgerKey, data)
}

// LoadLedger restores a ledger saved by Save, or returns an empty one.
func LoadLedger(r kv.Getter) (*Ledger, error) {
	l := NewLedger()
	data, err := r.Get(ledgerKey)
	if err != nil {
		if r.IsNotFound(err) {
			return l, nil
		}
		return nil, errors.Wrap(err, "read ledger")
	}
	var holdings []holding
	if err := rlp.DecodeBytes(data, &holdings); err != nil {
		return nil, errors.Wrap(err, "decode ledger")
	}
	for _, h := range holdings {
		supply, overflow := math.SafeAdd(l.supply, h.Balance)
		if overflow {
			return nil, ErrSupplyOverflow
		}
		l.supply = supply
		l.balances[h.Owner] = h.Balance
	}
	return l, nil
}
