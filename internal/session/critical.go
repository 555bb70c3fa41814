package session

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

const criticalStateKey = "critical_mode"

// CriticalMode reports whether a protected operation is underway.
//
// While it is active the client never refreshes, logs out or navigates.
type CriticalMode interface {
	Active() bool
}

// Flag is an in-memory [CriticalMode] shared by every goroutine in the process.
type Flag struct {
	on atomic.Bool
}

// Active implements [CriticalMode].
func (f *Flag) Active() bool {
	return f.on.Load()
}

// Enter marks a protected operation as started.
func (f *Flag) Enter() { f.on.Store(true) }

// Exit clears the flag.
func (f *Flag) Exit() { f.on.Store(false) }

// Run holds the flag for the duration of fn.
func (f *Flag) Run(fn func() error) error {
	f.Enter()
	defer f.Exit()
	return fn()
}

// StoredFlag is a [CriticalMode] persisted in a [StateStore] so it survives
// across CLI invocations for the same profile.
//
// Reads are served from memory, writes go through the store first.
type StoredFlag struct {
	flag  Flag
	store StateStore
}

// NewStoredFlag loads the flag's current value from store.
func NewStoredFlag(store StateStore) (*StoredFlag, error) {
	s := &StoredFlag{store: store}

	value, ok, err := store.GetState(criticalStateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load critical mode: %w", err)
	}
	if ok {
		on, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse critical mode %q: %w", value, err)
		}
		if on {
			s.flag.Enter()
		}
	}

	return s, nil
}

// Active implements [CriticalMode].
func (s *StoredFlag) Active() bool {
	return s.flag.Active()
}

// Set persists and applies on.
func (s *StoredFlag) Set(on bool) error {
	if err := s.store.SetState(criticalStateKey, strconv.FormatBool(on)); err != nil {
		return fmt.Errorf("failed to save critical mode: %w", err)
	}

	if on {
		s.flag.Enter()
	} else {
		s.flag.Exit()
	}
	return nil
}
