package app

import (
	"context"
	"sync"

	"github.com/fd1az/promptchain/business/wallet/domain"
	"github.com/fd1az/promptchain/internal/apperror"
)

type update struct {
	reduce domain.Reducer
	done   chan domain.State
}

// Store owns the connection state. A single goroutine applies reducers in
// arrival order, each to the latest snapshot, and publishes the result.
type Store struct {
	updates chan update

	mu       sync.RWMutex
	current  domain.State
	subs     map[int]chan domain.State
	nextSub  int
	closed   chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewStore starts the store goroutine. Close stops it.
func NewStore(initial domain.State) *Store {
	s := &Store{
		updates: make(chan update),
		current: initial,
		subs:    make(map[int]chan domain.State),
		closed:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Store) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.closed:
			return
		case u := <-s.updates:
			s.mu.Lock()
			next := u.reduce(s.current)
			s.current = next
			for _, ch := range s.subs {
				publish(ch, next)
			}
			s.mu.Unlock()
			u.done <- next
		}
	}
}

// publish keeps only the newest snapshot for slow subscribers.
func publish(ch chan domain.State, st domain.State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}

// Update applies fn and returns the resulting state.
func (s *Store) Update(ctx context.Context, fn domain.Reducer) (domain.State, error) {
	u := update{reduce: fn, done: make(chan domain.State, 1)}
	select {
	case s.updates <- u:
	case <-s.closed:
		return s.State(), apperror.New(apperror.CodeInvalidState, apperror.WithContext("state store closed"))
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
	return <-u.done, nil
}

// State returns the latest snapshot.
func (s *Store) State() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe returns a channel receiving every published snapshot, starting
// with the current one, and a function that unsubscribes and closes it.
func (s *Store) Subscribe() (<-chan domain.State, func()) {
	ch := make(chan domain.State, 1)

	s.mu.Lock()
	select {
	case <-s.closed:
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.current
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			if ch, ok := s.subs[id]; ok {
				close(ch)
				delete(s.subs, id)
			}
			s.mu.Unlock()
		})
	}
}

// Close stops the store goroutine and closes subscriber channels. Later
// updates fail.
func (s *Store) Close() error {
	s.stopOnce.Do(func() {
		close(s.closed)
		<-s.stopped

		s.mu.Lock()
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
		s.mu.Unlock()
	})
	return nil
}
