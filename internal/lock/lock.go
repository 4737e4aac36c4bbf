// Package lock serialises lifecycle operations on the same ticket mint.
// Locks are an optimisation: the ledger still re-validates every listing and
// transfer, so a lost or expired lock can never break the resale invariants.
package lock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

const defaultLockTTL = 2 * time.Minute

// ErrEmptyKey is returned when no mint is given.
var ErrEmptyKey = errors.New("lock: mint is required")

// Handle releases a held lock. Unlock is safe to call more than once.
type Handle interface {
	Unlock(ctx context.Context) error
}

// MintLocker blocks until the lock for mint is held or ctx is done.
type MintLocker interface {
	Acquire(ctx context.Context, mint string) (Handle, error)
}

var _ MintLocker = (*LocalMintLocker)(nil)

// LocalMintLocker is an in-process keyed mutex.
type LocalMintLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch      chan struct{}
	waiters int
}

// NewLocalMintLocker returns an empty locker.
func NewLocalMintLocker() *LocalMintLocker {
	return &LocalMintLocker{slots: make(map[string]*slot)}
}

func (l *LocalMintLocker) Acquire(ctx context.Context, mint string) (Handle, error) {
	mint = strings.TrimSpace(mint)
	if mint == "" {
		return nil, ErrEmptyKey
	}

	l.mu.Lock()
	s, ok := l.slots[mint]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[mint] = s
	}
	s.waiters++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return &localHandle{locker: l, mint: mint, slot: s}, nil
	case <-ctx.Done():
		l.release(mint, s, false)
		return nil, ctx.Err()
	}
}

// Held reports how many callers hold or wait for mint.
func (l *LocalMintLocker) Held(mint string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[mint]; ok {
		return s.waiters
	}
	return 0
}

func (l *LocalMintLocker) release(mint string, s *slot, held bool) {
	if held {
		<-s.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s.waiters--
	if s.waiters == 0 {
		delete(l.slots, mint)
	}
}

type localHandle struct {
	locker *LocalMintLocker
	mint   string
	slot   *slot
	once   sync.Once
}

func (h *localHandle) Unlock(context.Context) error {
	h.once.Do(func() {
		h.locker.release(h.mint, h.slot, true)
	})
	return nil
}
