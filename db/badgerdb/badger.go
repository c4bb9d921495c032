// Package badgerdb implements db.Database with BadgerDB.
package badgerdb

import (
	"errors"
	"os"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"

	"github.com/danintel/trusted-compute-framework/db"
)

// MemTableSize is the size of the single memtable. Work order results are
// small, the 64MB badger default is not needed.
const MemTableSize = 16 << 20

var (
	_ db.Database = (*BadgerDB)(nil)
	_ db.WriteTx  = writeTx{}
)

// BadgerDB is a db.Database stored in a directory.
type BadgerDB struct {
	db *badger.DB
}

// New opens, or creates, the database in opts.Path. Writes are synced to
// disk before Commit returns.
func New(opts db.Options) (*BadgerDB, error) {
	if err := os.MkdirAll(opts.Path, 0o750); err != nil {
		return nil, err
	}
	bdb, err := badger.Open(badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithSyncWrites(true).
		WithCompression(options.None).
		WithNumMemtables(1).
		WithMemTableSize(MemTableSize))
	if err != nil {
		return nil, err
	}
	return &BadgerDB{db: bdb}, nil
}

func get(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func tooBig(err error) error {
	if errors.Is(err, badger.ErrTxnTooBig) {
		return db.ErrTxnTooBig
	}
	return err
}

// Get implements db.Reader.
func (d *BadgerDB) Get(key []byte) (value []byte, err error) {
	err = d.db.View(func(txn *badger.Txn) error {
		value, err = get(txn, key)
		return err
	})
	return value, err
}

// Iterate implements db.Reader.
func (d *BadgerDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			next := true
			if err := item.Value(func(v []byte) error {
				next = callback(item.Key(), v)
				return nil
			}); err != nil {
				return err
			}
			if !next {
				return nil
			}
		}
		return nil
	})
}

// WriteTx implements db.Database.
func (d *BadgerDB) WriteTx() db.WriteTx {
	return writeTx{txn: d.db.NewTransaction(true)}
}

// Close implements io.Closer.
func (d *BadgerDB) Close() error {
	return d.db.Close()
}

type writeTx struct {
	txn *badger.Txn
}

func (tx writeTx) Get(key []byte) ([]byte, error) { return get(tx.txn, key) }

func (tx writeTx) Set(key, value []byte) error { return tooBig(tx.txn.Set(key, value)) }

func (tx writeTx) Delete(key []byte) error { return tooBig(tx.txn.Delete(key)) }

func (tx writeTx) Commit() error {
	// Commit does not discard read-only transactions
	defer tx.txn.Discard()
	return tx.txn.Commit()
}

func (tx writeTx) Discard() { tx.txn.Discard() }
