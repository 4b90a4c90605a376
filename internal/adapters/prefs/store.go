// Package prefs persists per-session dashboard preferences in badger.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
)

const keyPrefix = "prefs/"

var (
	// ErrEmptySession is returned when no session id is given.
	ErrEmptySession = errors.New("empty session id")
	// ErrClosed is returned by reads and writes after Close.
	ErrClosed = errors.New("prefs store closed")
)

// Store reads and writes Preferences by session id.
type Store struct {
	db *badger.DB

	mu     sync.RWMutex
	closed bool
}

// Open opens a store under dir. An empty dir keeps everything in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if strings.TrimSpace(dir) == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open prefs store: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the preferences of a session, or the defaults when it has none.
func (s *Store) Get(_ context.Context, session string) (model.Preferences, error) {
	if session == "" {
		return model.Preferences{}, ErrEmptySession
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Preferences{}, ErrClosed
	}

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(session))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.DefaultPreferences(), nil
	}
	if err != nil {
		return model.Preferences{}, fmt.Errorf("read prefs: %w", err)
	}

	var p model.Preferences
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Preferences{}, fmt.Errorf("decode prefs: %w", err)
	}
	return p.Normalize(), nil
}

// Put stores normalized preferences for a session and returns them.
func (s *Store) Put(_ context.Context, session string, p model.Preferences) (model.Preferences, error) {
	if session == "" {
		return model.Preferences{}, ErrEmptySession
	}
	p = p.Normalize()
	raw, err := json.Marshal(p)
	if err != nil {
		return model.Preferences{}, fmt.Errorf("encode prefs: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Preferences{}, ErrClosed
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(session), raw)
	})
	if err != nil {
		return model.Preferences{}, fmt.Errorf("write prefs: %w", err)
	}
	return p, nil
}

// Close waits for running reads and writes, then flushes and closes the
// underlying database. Later calls return nil.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func key(session string) []byte {
	return []byte(keyPrefix + session)
}
