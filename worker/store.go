package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/danintel/trusted-compute-framework/config"
	"github.com/danintel/trusted-compute-framework/db"
	"github.com/danintel/trusted-compute-framework/db/badgerdb"
	"github.com/danintel/trusted-compute-framework/db/lru"
	"github.com/danintel/trusted-compute-framework/workorder"
)

// ErrResultNotFound is returned by ResultStore.Get for unknown work orders.
var ErrResultNotFound = errors.New("work order result not found")

// ResultStore keeps the final response of every processed work order, so it
// can be served by WorkOrderGetResult.
type ResultStore interface {
	Put(workOrderID string, resp *workorder.Response) error
	// Get returns ErrResultNotFound if there is no result for the work order.
	Get(workOrderID string) (*workorder.Response, error)
	// Len returns the number of results kept.
	Len() (int, error)
	Close() error
}

// OpenResultStore opens the store selected by kind, one of
// config.ResultStoreMemory and config.ResultStoreBadger. The badger store
// lives in dataDir/results; the memory store keeps at most size results.
func OpenResultStore(kind, dataDir string, size int) (ResultStore, error) {
	switch kind {
	case config.ResultStoreMemory, "":
		return NewMemoryStore(size), nil
	case config.ResultStoreBadger:
		database, err := badgerdb.New(db.Options{Path: filepath.Join(dataDir, "results")})
		if err != nil {
			return nil, fmt.Errorf("cannot open result store: %w", err)
		}
		return NewDBStore(database), nil
	default:
		return nil, fmt.Errorf("unknown result store %q", kind)
	}
}

type memoryStore struct {
	cache *lru.Cache
}

// NewMemoryStore returns a ResultStore keeping the last size results in
// memory. Older results are evicted.
func NewMemoryStore(size int) ResultStore {
	return &memoryStore{cache: lru.New(size)}
}

func (m *memoryStore) Put(workOrderID string, resp *workorder.Response) error {
	m.cache.Add(workOrderID, resp)
	return nil
}

func (m *memoryStore) Get(workOrderID string) (*workorder.Response, error) {
	resp, ok := m.cache.Get(workOrderID).(*workorder.Response)
	if !ok {
		return nil, ErrResultNotFound
	}
	return resp, nil
}

func (m *memoryStore) Len() (int, error) { return m.cache.Len(), nil }

func (*memoryStore) Close() error { return nil }

var resultPrefix = []byte("result/")

type dbStore struct {
	db db.Database
}

// NewDBStore returns a ResultStore persisting results as JSON in database.
// Closing the store closes database.
func NewDBStore(database db.Database) ResultStore {
	return &dbStore{db: database}
}

func resultKey(workOrderID string) []byte {
	return append(append([]byte{}, resultPrefix...), workOrderID...)
}

func (s *dbStore) Put(workOrderID string, resp *workorder.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	wTx := s.db.WriteTx()
	defer wTx.Discard()
	if err := wTx.Set(resultKey(workOrderID), data); err != nil {
		return err
	}
	return wTx.Commit()
}

func (s *dbStore) Get(workOrderID string) (*workorder.Response, error) {
	data, err := s.db.Get(resultKey(workOrderID))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	resp := &workorder.Response{}
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, fmt.Errorf("corrupted result of work order %s: %w", workOrderID, err)
	}
	return resp, nil
}

func (s *dbStore) Len() (int, error) {
	n := 0
	err := s.db.Iterate(resultPrefix, func(_, _ []byte) bool {
		n++
		return true
	})
	return n, err
}

func (s *dbStore) Close() error { return s.db.Close() }
