package quadstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"iter"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// ctxCheckInterval is how many entries Append writes between context checks.
const ctxCheckInterval = 256

// badgerStore manages all interaction with the BadgerDB database.
type badgerStore struct {
	db       *badger.DB
	path     string
	readOnly bool

	appendMu sync.Mutex // one Append at a time

	mu     sync.RWMutex
	closed bool
}

var _ Store = (*badgerStore)(nil)

func openBadger(opts OpenOptions) (*badgerStore, error) {
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil). // Suppress Badger logger
		WithReadOnly(opts.ReadOnly).
		WithSyncWrites(opts.SyncWrites)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrapf(err, "open store at %s", opts.Path)
	}
	return &badgerStore{db: db, path: opts.Path, readOnly: opts.ReadOnly}, nil
}

func (s *badgerStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *badgerStore) Append(ctx context.Context, version uint64, delta iter.Seq2[Change, error]) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if s.readOnly {
		return 0, ErrReadOnly
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	if err := s.checkSequence(version); err != nil {
		return 0, err
	}

	// Entries left behind by an append that died before its commit record.
	prefix := entryVersionPrefix(version)
	if err := s.db.DropPrefix(prefix); err != nil {
		return 0, errors.Wrapf(err, "clear staged entries of version %d", version)
	}

	info, err := s.writeEntries(ctx, version, delta)
	if err != nil {
		if dropErr := s.db.DropPrefix(prefix); dropErr != nil {
			err = errors.WithSecondaryError(err, dropErr)
		}
		return 0, err
	}

	if err := s.commitVersion(info); err != nil {
		if dropErr := s.db.DropPrefix(prefix); dropErr != nil {
			err = errors.WithSecondaryError(err, dropErr)
		}
		return 0, err
	}
	return info.Stats.Total(), nil
}

// checkSequence rejects versions that are already committed or lower than the latest.
func (s *badgerStore) checkSequence(version uint64) error {
	latest, err := s.latest()
	if errors.Is(err, ErrVersionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	switch {
	case version == latest.Version:
		return errors.Wrapf(ErrVersionExists, "version %d", version)
	case version < latest.Version:
		return errors.Wrapf(ErrVersionOutOfSequence, "version %d is below latest version %d", version, latest.Version)
	}
	return nil
}

// writeEntries stages every entry of the delta with a write batch. The
// entries stay invisible until commitVersion writes the version record.
func (s *badgerStore) writeEntries(ctx context.Context, version uint64, delta iter.Seq2[Change, error]) (*VersionInfo, error) {
	wb := s.db.NewWriteBatch()
	digest := sha1.New()
	info := &VersionInfo{Version: version}

	var seq uint64
	for change, err := range delta {
		if err != nil {
			wb.Cancel()
			return nil, err
		}
		if seq%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				wb.Cancel()
				return nil, err
			}
		}
		if !change.Type.Valid() {
			wb.Cancel()
			return nil, errors.Newf("entry %d of version %d has invalid change type %d", seq, version, change.Type)
		}

		data, err := msgpack.Marshal(&change)
		if err != nil {
			wb.Cancel()
			return nil, errors.Wrapf(err, "encode entry %d of version %d", seq, version)
		}
		if err := wb.Set(entryKey(version, seq), data); err != nil {
			wb.Cancel()
			return nil, errors.Wrapf(err, "stage entry %d of version %d", seq, version)
		}
		digest.Write(data)

		if change.Type == Addition {
			info.Stats.Added++
		} else {
			info.Stats.Deleted++
		}
		seq++
	}

	if err := ctx.Err(); err != nil {
		wb.Cancel()
		return nil, err
	}
	if err := wb.Flush(); err != nil {
		return nil, errors.Wrapf(err, "flush entries of version %d", version)
	}

	info.Digest = hex.EncodeToString(digest.Sum(nil))
	return info, nil
}

// commitVersion writes the version record, making the version visible.
func (s *badgerStore) commitVersion(info *VersionInfo) error {
	info.Timestamp = time.Now().UTC()
	data, err := json.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "encode version record")
	}
	key := versionKey(info.Version)
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return errors.Wrapf(ErrVersionExists, "version %d", info.Version)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

func (s *badgerStore) Version(ctx context.Context, version uint64) (*VersionInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.version(version)
}

func (s *badgerStore) version(version uint64) (*VersionInfo, error) {
	var info VersionInfo
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(versionKey(version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errors.Wrapf(ErrVersionNotFound, "version %d", version)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		})
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *badgerStore) Latest(ctx context.Context) (*VersionInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.latest()
}

func (s *badgerStore) latest() (*VersionInfo, error) {
	infos, err := s.scanVersions(1)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrVersionNotFound
	}
	return infos[0], nil
}

func (s *badgerStore) Log(ctx context.Context, limit int) ([]*VersionInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.scanVersions(limit)
}

// scanVersions walks version records from the newest down.
func (s *badgerStore) scanVersions(limit int) ([]*VersionInfo, error) {
	var infos []*VersionInfo
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = versionPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(lastVersionSeekKey()); it.ValidForPrefix(versionPrefix); it.Next() {
			item := it.Item()
			var info VersionInfo
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			}); err != nil {
				return errors.Wrapf(err, "decode version record %d", versionFromKey(item.Key()))
			}
			infos = append(infos, &info)
			if limit > 0 && len(infos) >= limit {
				break
			}
		}
		return nil
	})
	return infos, err
}

func (s *badgerStore) Changes(ctx context.Context, version uint64) iter.Seq2[Change, error] {
	return func(yield func(Change, error) bool) {
		if err := s.checkOpen(); err != nil {
			yield(Change{}, err)
			return
		}
		if _, err := s.version(version); err != nil {
			yield(Change{}, err)
			return
		}

		prefix := entryVersionPrefix(version)
		stopped := false
		err := s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				var change Change
				if err := it.Item().Value(func(val []byte) error {
					return msgpack.Unmarshal(val, &change)
				}); err != nil {
					return errors.Wrapf(err, "decode entry of version %d", version)
				}
				if !yield(change, nil) {
					stopped = true
					return nil
				}
			}
			return nil
		})
		if err != nil && !stopped {
			yield(Change{}, err)
		}
	}
}

func (s *badgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	// Wait for an in-flight Append before pulling the database away.
	s.appendMu.Lock()
	defer s.appendMu.Unlock()
	return s.db.Close()
}
