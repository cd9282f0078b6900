package pebbledb

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

var ErrNotFound = errors.New("store resource not found")

const completionRecordKeyPrefix = 0x00

// Store is the completion ledger. Records are append-only: one record per
// work key, written with pebble.Sync so the append is durable before the
// call returns.
type Store struct {
	db *pebble.DB
}

func NewCompletionStore(storeDir string) (*Store, error) {
	db, err := pebble.Open(filepath.Join(storeDir, "completion-ledger"), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %v", err)
	}

	return &Store{db: db}, nil
}

func recordKey(workKey string) []byte {
	key := []byte{completionRecordKeyPrefix}
	return append(key, []byte(workKey)...)
}

func (cs *Store) Contains(workKey string) (bool, error) {
	_, closer, err := cs.db.Get(recordKey(workKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("getting completion record: %v", err)
	}
	defer closer.Close()

	return true, nil
}

// Append stores the settlement token for the given work key. Appending a key
// that already has a record is a no-op: the first token wins, so a re-append
// after a crash between append and report can never overwrite the proof of
// the original submission.
func (cs *Store) Append(workKey, settlementToken string) error {
	exists, err := cs.Contains(workKey)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = cs.db.Set(recordKey(workKey), []byte(settlementToken), pebble.Sync)
	if err != nil {
		return fmt.Errorf("appending completion record: %v", err)
	}

	return nil
}

func (cs *Store) GetSettlementToken(workKey string) (string, error) {
	value, closer, err := cs.db.Get(recordKey(workKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("getting completion record: %v", err)
	}
	defer closer.Close()

	token := string(value)

	return token, nil
}

func (cs *Store) GetAllRecords() (map[string]string, error) {
	iter, err := cs.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{completionRecordKeyPrefix},
		UpperBound: []byte{completionRecordKeyPrefix + 1},
	})
	if err != nil {
		return nil, fmt.Errorf("creating iterator: %v", err)
	}
	defer iter.Close()

	records := make(map[string]string)
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()

		value, err := iter.ValueAndErr()
		if err != nil {
			return nil, fmt.Errorf("getting value from iter: %v", err)
		}

		records[string(key[1:])] = string(value)
	}

	return records, nil
}

func (cs *Store) Close() error {
	return cs.db.Close()
}
