// Package db is the key-value storage behind the persistent work order
// result store. badgerdb is the only implementation.
package db

import (
	"errors"
	"io"
)

var (
	// ErrKeyNotFound is returned by Get for missing keys.
	ErrKeyNotFound = errors.New("key not found")
	// ErrTxnTooBig is returned by a WriteTx which cannot take more writes;
	// the caller commits and continues in a new one.
	ErrTxnTooBig = errors.New("transaction too big")
)

// Options configures a Database.
type Options struct {
	// Path is the directory of the database, created if missing.
	Path string
}

// Database is a key-value store safe for concurrent use.
type Database interface {
	io.Closer
	Reader
	WriteTx() WriteTx
}

// Reader holds the read operations of a Database.
type Reader interface {
	// Get returns ErrKeyNotFound if key is missing.
	Get(key []byte) ([]byte, error)
	// Iterate calls callback, in key order, for the entries under prefix
	// until it returns false. key and value are only valid during the call.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
}

// WriteTx groups writes applied at once by Commit. Discard may be deferred
// right after creating the transaction, it is a no-op once committed.
type WriteTx interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Commit() error
	Discard()
}
