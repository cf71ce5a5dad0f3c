package cartstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrStaleResult means a refresh issued later was applied first.
	ErrStaleResult = errors.New("refresh result is stale")
	// ErrSessionEnded means the store was reset while the refresh was in flight.
	ErrSessionEnded = errors.New("session ended during refresh")
)

// Fetcher loads the authoritative cart of the current session.
type Fetcher interface {
	GetCart(ctx context.Context) ([]domain.LineItem, error)
}

// Authenticator reports whether a credential is currently available.
type Authenticator interface {
	IsAuthenticated() bool
}

// State is an immutable snapshot of the cart.
type State struct {
	Items   []domain.LineItem
	Loading bool
}

func (s State) Total() float64 { return domain.Total(s.Items) }

func (s State) Count() int { return domain.Count(s.Items) }

// Store holds the client copy of the cart. Items are only ever replaced
// wholesale by Refresh, Reset and Clear.
type Store struct {
	fetcher Fetcher
	auth    Authenticator
	log     *slog.Logger

	mu       sync.Mutex
	items    []domain.LineItem
	inFlight int
	epoch    uint64
	issued   uint64
	applied  uint64
	version  uint64

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(State)

	// notifyMu orders deliveries so no subscriber sees an older version
	// after a newer one.
	notifyMu sync.Mutex
	notified uint64
}

func New(fetcher Fetcher, authenticator Authenticator, log *slog.Logger) *Store {
	return &Store{
		fetcher: fetcher,
		auth:    authenticator,
		log:     logger.OrDefault(log),
		items:   []domain.LineItem{},
		subs:    make(map[int]func(State)),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, _ := s.snapshotLocked()
	return st
}

// Subscribe registers fn to be called with every new state. fn runs outside
// the store lock and may read Snapshot, but must not call Refresh, Reset or
// Clear synchronously.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Refresh replaces the items with the server's view of the cart. A failed
// fetch leaves the items untouched. Results older than the last applied
// one, or issued before a Reset, are dropped.
func (s *Store) Refresh(ctx context.Context) error {
	// The epoch is taken before the auth check so a logout that lands
	// between the two still ends this refresh.
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	if s.auth != nil && !s.auth.IsAuthenticated() {
		return ErrUnauthenticated
	}

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return ErrSessionEnded
	}
	s.issued++
	seq := s.issued
	s.inFlight++
	s.version++
	st, ver := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(st, ver)

	items, err := s.fetcher.GetCart(ctx)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		s.log.Debug("dropping cart refresh from ended session", "seq", seq)
		return ErrSessionEnded
	}
	s.inFlight--
	var result error
	switch {
	case err != nil:
		result = fmt.Errorf("refresh cart: %w", err)
	case seq < s.applied:
		result = ErrStaleResult
	default:
		s.applied = seq
		s.items = domain.CloneItems(items)
	}
	s.version++
	st, ver = s.snapshotLocked()
	s.mu.Unlock()
	s.publish(st, ver)

	if errors.Is(result, ErrStaleResult) {
		s.log.Debug("dropping stale cart refresh", "seq", seq)
	}
	return result
}

// Reset empties the cart without contacting the server. Refreshes already
// in flight are ignored when they resolve.
func (s *Store) Reset() {
	s.mu.Lock()
	s.epoch++
	s.items = []domain.LineItem{}
	s.inFlight = 0
	s.version++
	st, ver := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(st, ver)
}

// Ticket orders a mutation whose outcome the caller applies itself against
// the refreshes around it. It is taken before the request is sent.
type Ticket struct {
	seq   uint64
	epoch uint64
}

// Issue reserves the next sequence number.
func (s *Store) Issue() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return Ticket{seq: s.issued, epoch: s.epoch}
}

// ApplyClear records that the server cart was emptied by the request t was
// issued for. Refreshes issued before t become stale. If a refresh issued
// after t was already applied it wins and ApplyClear returns
// ErrStaleResult; a Reset since t gives ErrSessionEnded.
func (s *Store) ApplyClear(t Ticket) error {
	s.mu.Lock()
	switch {
	case t.epoch != s.epoch:
		s.mu.Unlock()
		return ErrSessionEnded
	case t.seq < s.applied:
		s.mu.Unlock()
		return ErrStaleResult
	}
	s.applied = t.seq
	s.items = []domain.LineItem{}
	s.version++
	st, ver := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(st, ver)
	return nil
}

// Clear empties the cart as a newly applied result, so every refresh
// issued before it is stale.
func (s *Store) Clear() {
	_ = s.ApplyClear(s.Issue())
}

// Bind follows sig: becoming authenticated starts a refresh in the
// background, losing authentication resets synchronously.
func (s *Store) Bind(sig auth.Signal) (unbind func()) {
	unbind = sig.Subscribe(func(authenticated bool) {
		if authenticated {
			go s.refreshInBackground()
			return
		}
		s.Reset()
	})
	if sig.IsAuthenticated() {
		go s.refreshInBackground()
	}
	return unbind
}

func (s *Store) refreshInBackground() {
	err := s.Refresh(context.Background())
	if err != nil && !errors.Is(err, ErrStaleResult) && !errors.Is(err, ErrSessionEnded) {
		s.log.Warn("cart refresh failed", "err", err)
	}
}

func (s *Store) snapshotLocked() (State, uint64) {
	return State{
		Items:   domain.CloneItems(s.items),
		Loading: s.inFlight > 0,
	}, s.version
}

func (s *Store) publish(st State, ver uint64) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if ver <= s.notified {
		return
	}
	s.notified = ver

	s.subMu.Lock()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}
