// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact accumulates slide fragments into a single append-only
// output file.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"
)

// Header is the comment line every artifact starts with.
const Header = "% Beamer slides are appended to this file"

var (
	// ErrOutOfOrder is returned when a fragment is appended for any group
	// other than the one following the last appended group.
	ErrOutOfOrder = errors.New("fragment appended out of group order")

	// ErrLocked is returned when another writer holds the artifact lock.
	ErrLocked = errors.New("artifact is locked by another writer")
)

// Accumulator is the single writer of one artifact. Fragments must be
// appended for groups 1, 2, 3, ... in that order.
type Accumulator struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
	last int
}

// Initialize creates or truncates the artifact at path and writes the header
// line followed by a blank line. It is called once per run, before any
// group is processed.
func Initialize(path string) (*Accumulator, error) {
	a := &Accumulator{path: path, lock: flock.New(path + ".lock")}

	err := a.withLock(func() error {
		return writeFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, Header+"\n\n")
	})
	if err != nil {
		return nil, fmt.Errorf("initializing %s: %w", path, err)
	}
	return a, nil
}

// Path returns the artifact file path.
func (a *Accumulator) Path() string { return a.path }

// Appended returns the index of the last appended group, or 0.
func (a *Accumulator) Appended() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Append writes text followed by one blank line for group index. The file
// is opened, written, synced, and closed before Append returns, on every
// path.
func (a *Accumulator) Append(index int, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if index != a.last+1 {
		return fmt.Errorf("%w: got group %d after group %d", ErrOutOfOrder, index, a.last)
	}

	err := a.withLock(func() error {
		return writeFile(a.path, os.O_APPEND|os.O_WRONLY, text+"\n\n")
	})
	if err != nil {
		return fmt.Errorf("appending group %d to %s: %w", index, a.path, err)
	}
	a.last = index
	return nil
}

func (a *Accumulator) withLock(fn func() error) error {
	locked, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	defer a.lock.Unlock()
	return fn()
}

func writeFile(path string, flag int, content string) (err error) {
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err := f.WriteString(content); err != nil {
		return err
	}
	return f.Sync()
}
