package lock

import (
	"context"
)

// Locker is a single-slot guard that keeps dispatch passes from overlapping
type Locker interface {
	// TryLock takes the slot without waiting. It reports false when the slot is held.
	TryLock(ctx context.Context) (bool, error)

	// Unlock releases a slot taken by TryLock
	Unlock(ctx context.Context) error
}

// LocalLocker guards passes within one process
type LocalLocker struct {
	slot chan struct{}
}

// Ensure LocalLocker implements Locker
var _ Locker = (*LocalLocker)(nil)

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slot: make(chan struct{}, 1)}
}

// TryLock takes the slot if it is free
func (l *LocalLocker) TryLock(ctx context.Context) (bool, error) {
	select {
	case l.slot <- struct{}{}:
		return true, nil
	default:
		return false, nil
	}
}

// Unlock frees the slot
func (l *LocalLocker) Unlock(ctx context.Context) error {
	select {
	case <-l.slot:
	default:
	}
	return nil
}
