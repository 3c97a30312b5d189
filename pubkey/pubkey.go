// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pubkey

import (
	"bytes"
	"encoding/binary"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// Size length of a key in bytes.
const Size = 32

// Pubkey identifies an account on the host chain: a validator vote account,
// a stake account, a wallet or an authority.
type Pubkey [Size]byte

// String returns the base58 form.
func (k Pubkey) String() string {
	return base58.Encode(k[:])
}

// Bytes returns byte slice form of the key.
func (k Pubkey) Bytes() []byte {
	return k[:]
}

// IsZero returns if the key is all zero bytes.
func (k Pubkey) IsZero() bool {
	return k == Pubkey{}
}

// MarshalText encodes the key in base58.
func (k Pubkey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes base58 text into the key.
func (k *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Parse decodes a base58 string into a key.
func Parse(s string) (Pubkey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, errors.Wrap(err, "decode base58")
	}
	if len(b) != Size {
		return Pubkey{}, errors.Errorf("invalid key length %d", len(b))
	}
	var k Pubkey
	copy(k[:], b)
	return k, nil
}

// MustParse parses s, panics on error.
func MustParse(s string) Pubkey {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// BytesToPubkey converts bytes slice into a key.
// If b is larger than key length, b will be cropped (from the left).
// If b is smaller than key length, b will be extended (from the left).
func BytesToPubkey(b []byte) (k Pubkey) {
	if len(b) > Size {
		b = b[len(b)-Size:]
	}
	copy(k[Size-len(b):], b)
	return
}

// Derive computes a key from the given seeds. Each seed is length prefixed
// so that different splits of the same bytes never collide.
func Derive(seeds ...[]byte) Pubkey {
	var buf bytes.Buffer
	for _, s := range seeds {
		var l [2]byte
		binary.BigEndian.PutUint16(l[:], uint16(len(s)))
		buf.Write(l[:])
		buf.Write(s)
	}
	return Pubkey(blake2b.Sum256(buf.Bytes()))
}

var (
	authoritySeed = []byte("withdraw")
	transientSeed = []byte("transient")
)

// Authority returns the withdraw authority owned by the pool.
func Authority(pool Pubkey) Pubkey {
	return Derive(pool[:], authoritySeed)
}

// StakeAddress returns the address of the validator stake account for the
// given vote account. A zero seed keeps the historical unsuffixed address.
func StakeAddress(pool, vote Pubkey, seed uint32) Pubkey {
	if seed == 0 {
		return Derive(vote[:], pool[:])
	}
	var s [4]byte
	binary.LittleEndian.PutUint32(s[:], seed)
	return Derive(vote[:], pool[:], s[:])
}

// TransientAddress returns the address of the transient stake account for the
// given vote account and transient seed.
func TransientAddress(pool, vote Pubkey, seed uint64) Pubkey {
	var s [8]byte
	binary.LittleEndian.PutUint64(s[:], seed)
	return Derive(transientSeed, vote[:], pool[:], s[:])
}
