package lighter

import (
	"context"
	"fmt"
	"sync"
)

// NonceFetcher returns the next unused nonce for an (account, key) pair as
// known by the exchange.
type NonceFetcher interface {
	NextNonce(ctx context.Context, accountIndex int64, apiKeyIndex uint8) (int64, error)
}

type nonceKey struct {
	account int64
	key     uint8
}

type nonceSlot struct {
	mu     sync.Mutex
	next   int64
	loaded bool
}

// NonceSequencer hands out strictly increasing nonces per (account, key)
// pair. Each pair has its own lock, so builds for different pairs never wait
// on each other. The cache is in-memory only.
type NonceSequencer struct {
	fetcher NonceFetcher

	mu    sync.Mutex
	slots map[nonceKey]*nonceSlot
}

// NewNonceSequencer creates a sequencer. A nil fetcher means offline mode:
// every build must carry an explicit nonce.
func NewNonceSequencer(fetcher NonceFetcher) *NonceSequencer {
	return &NonceSequencer{
		fetcher: fetcher,
		slots:   make(map[nonceKey]*nonceSlot),
	}
}

func (s *NonceSequencer) slot(account int64, key uint8) *nonceSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := nonceKey{account: account, key: key}
	sl, ok := s.slots[k]
	if !ok {
		sl = &nonceSlot{}
		s.slots[k] = sl
	}
	return sl
}

// Resolve returns explicit unchanged when it is set, without touching the
// cache or the network. Otherwise it behaves like Next.
func (s *NonceSequencer) Resolve(ctx context.Context, account int64, key uint8, explicit *int64) (int64, error) {
	if explicit != nil {
		if *explicit < 0 {
			return 0, &EncodingError{Field: "Nonce", Value: *explicit, Reason: "must not be negative"}
		}
		return *explicit, nil
	}
	return s.Next(ctx, account, key)
}

// Next reserves the next nonce for the pair, fetching the starting value from
// the exchange on first use. A reserved nonce is never handed out again, even
// if the transaction using it is later dropped.
func (s *NonceSequencer) Next(ctx context.Context, account int64, key uint8) (int64, error) {
	sl := s.slot(account, key)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if !sl.loaded {
		if s.fetcher == nil {
			return 0, &NonceUnavailableError{AccountIndex: account, APIKeyIndex: key}
		}
		n, err := s.fetcher.NextNonce(ctx, account, key)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, fmt.Errorf("lighter: exchange returned negative nonce %d", n)
		}
		sl.next, sl.loaded = n, true
	}
	n := sl.next
	sl.next++
	return n, nil
}

// Peek returns the nonce Next would hand out, if the pair is cached.
func (s *NonceSequencer) Peek(account int64, key uint8) (int64, bool) {
	sl := s.slot(account, key)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.next, sl.loaded
}

// Set overrides the cached value, e.g. after the caller re-derived it.
func (s *NonceSequencer) Set(account int64, key uint8, next int64) {
	sl := s.slot(account, key)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.next, sl.loaded = next, true
}

// Invalidate drops the cached value so the next build re-fetches it.
func (s *NonceSequencer) Invalidate(account int64, key uint8) {
	sl := s.slot(account, key)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.next, sl.loaded = 0, false
}
