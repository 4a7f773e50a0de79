package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for BadgerDB storage
const (
	docKeyPrefix  = "doc:"
	viewKeyPrefix = "view:"
	keySep        = "\x00"
)

type BadgerStore struct {
	db      *badger.DB
	designs []Design
}

var _ Store = (*BadgerStore)(nil)

// OpenBadger opens a badger-backed store at dir. An empty dir keeps
// everything in memory.
func OpenBadger(dir string, designs ...Design) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, designs: designs}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) Get(ctx context.Context, id string, dst any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(docKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}

		return item.Value(func(val []byte) error {
			return unmarshalDoc(val, dst)
		})
	})
}

func (s *BadgerStore) Create(ctx context.Context, doc any) (string, string, error) {
	d, err := prepare(s.designs, doc)
	if err != nil {
		return "", "", err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		docKey := []byte(docKeyPrefix + d.Id)
		_, err := txn.Get(docKey)
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get document: %w", err)
		}

		if err := txn.Set(docKey, d.Body); err != nil {
			return fmt.Errorf("set document: %w", err)
		}

		for _, e := range d.Entries {
			if err := txn.Set(indexKey(e, d.Id), []byte(d.Id)); err != nil {
				return fmt.Errorf("set index %s/%s: %w", e.Design, e.View, err)
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return "", "", ErrConflict
	}
	if err != nil {
		return "", "", err
	}

	return d.Id, d.Rev, nil
}

func (s *BadgerStore) Query(ctx context.Context, design, view string, q ViewQuery) ([]Row, error) {
	if !findView(s.designs, design, view) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownView, design, view)
	}

	viewPrefix := viewKeyPrefix + design + "/" + view + ":"
	prefixes := []string{viewPrefix}
	if len(q.Keys) > 0 {
		prefixes = prefixes[:0]
		for _, k := range q.Keys {
			prefixes = append(prefixes, viewPrefix+k+keySep)
		}
	}

	type entry struct {
		row  Row
		sort string
	}
	var entries []entry

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, p := range prefixes {
			prefix := []byte(p)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				parts := strings.Split(strings.TrimPrefix(string(it.Item().Key()), viewPrefix), keySep)
				if len(parts) != 3 {
					return fmt.Errorf("malformed index key %q", it.Item().Key())
				}
				entries = append(entries, entry{
					row:  Row{Id: parts[2], Key: parts[0]},
					sort: parts[1],
				})
			}
		}

		for i := range entries {
			item, err := txn.Get([]byte(docKeyPrefix + entries[i].row.Id))
			if err != nil {
				return fmt.Errorf("get document %s: %w", entries[i].row.Id, err)
			}
			body, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			entries[i].row.Doc = body
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if q.Descending {
			a, b = b, a
		}
		if a.sort != b.sort {
			return a.sort < b.sort
		}
		return a.row.Id < b.row.Id
	})

	result := make([]Row, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.row)
	}
	return result, nil
}

func indexKey(e indexEntry, id string) []byte {
	return []byte(viewKeyPrefix + e.Design + "/" + e.View + ":" + e.Key + keySep + e.Sort + keySep + id)
}
