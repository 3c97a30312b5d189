// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Getter wraps methods for getting kvs.
type Getter interface {
	// Get value for given key.
	// An error returned if key not found. It can be checked via IsNotFound.
	Get(key []byte) (value []byte, err error)
	Has(key []byte) (bool, error)
	IsNotFound(error) bool
}

// Putter wraps methods for putting kvs.
type Putter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// GetPutter wraps methods for getting/putting kvs.
type GetPutter interface {
	Getter
	Putter
}

// Batch collects putting ops and writes them atomically.
type Batch interface {
	Putter

	Len() int
	Write() error
}

// Range is a key range, Start inclusive and Limit exclusive.
// A nil Limit means no upper bound.
type Range struct {
	Start []byte
	Limit []byte
}

// Iterator to iterate kvs.
type Iterator interface {
	Next() bool
	Release()
	Error() error

	Key() []byte
	Value() []byte
}

// Store defines the full functional kv store.
type Store interface {
	GetPutter

	NewBatch() Batch
	NewIterator(r Range) Iterator
	Close() error
}

type (
	getFunc        func(key []byte) ([]byte, error)
	hasFunc        func(key []byte) (bool, error)
	isNotFoundFunc func(err error) bool
	putFunc        func(key, val []byte) error
	deleteFunc     func(key []byte) error
)

func (f getFunc) Get(key []byte) ([]byte, error)   { return f(key) }
func (f hasFunc) Has(key []byte) (bool, error)     { return f(key) }
func (f isNotFoundFunc) IsNotFound(err error) bool { return f(err) }
func (f putFunc) Put(key, val []byte) error        { return f(key, val) }
func (f deleteFunc) Delete(key []byte) error       { return f(key) }

// Bucket provides a logical key space inside a store.
type Bucket string

func (b Bucket) key(k []byte) []byte {
	return append([]byte(b), k...)
}

// NewGetter creates a bucket getter from the source getter.
func (b Bucket) NewGetter(src Getter) Getter {
	return &struct {
		getFunc
		hasFunc
		isNotFoundFunc
	}{
		func(key []byte) ([]byte, error) { return src.Get(b.key(key)) },
		func(key []byte) (bool, error) { return src.Has(b.key(key)) },
		src.IsNotFound,
	}
}

// NewPutter creates a bucket putter from the source putter.
func (b Bucket) NewPutter(src Putter) Putter {
	return &struct {
		putFunc
		deleteFunc
	}{
		func(key, val []byte) error { return src.Put(b.key(key), val) },
		func(key []byte) error { return src.Delete(b.key(key)) },
	}
}

// Range returns the key range covering the whole bucket.
func (b Bucket) Range() Range {
	start := []byte(b)
	var limit []byte
	for i := len(start) - 1; i >= 0; i-- {
		if start[i] < 0xff {
			limit = make([]byte, i+1)
			copy(limit, start)
			limit[i]++
			break
		}
	}
	return Range{Start: start, Limit: limit}
}
