// Copyright 2018-2024 CERN
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// In applying this license, CERN does not waive the privileges and immunities
// granted to it by virtue of its status as an Intergovernmental Organization
// or submit itself to any jurisdiction.

// Package lock implements the in-memory WOPI lock table.
//
// The table keeps at most one lock per file id. Locks expire 30 minutes
// after they were issued or last refreshed; expired entries are reclaimed
// lazily on the next operation touching the same id, there is no
// background sweeper. Every transition runs its full read-decide-write
// window under the table mutex, so overlapping requests for the same id
// serialize into a total order.
package lock

import (
	"sync"
	"time"
)

// DefaultTTL is the WOPI lock validity window.
const DefaultTTL = 30 * time.Minute

// ReasonNotLocked is the failure reason reported when an operation
// requiring a lock finds the file unlocked.
const ReasonNotLocked = "File not locked"

// Info is a stored lock.
type Info struct {
	Lock      string
	CreatedAt time.Time
}

// Result is the outcome of a lock transition. When OK is false, Lock
// carries the lock currently held on the file (empty when unlocked) and
// Reason optionally names the cause, both destined for the X-WOPI-Lock
// and X-WOPI-LockFailureReason response headers.
type Result struct {
	OK     bool
	Lock   string
	Reason string
}

// Option configures a Table.
type Option func(*Table)

// WithTTL overrides the lock validity window.
func WithTTL(ttl time.Duration) Option {
	return func(t *Table) {
		t.ttl = ttl
	}
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(t *Table) {
		t.now = now
	}
}

// Table is the process-wide lock table.
type Table struct {
	mu      sync.Mutex
	entries map[string]Info
	ttl     time.Duration
	now     func() time.Time
}

// NewTable returns an empty lock table.
func NewTable(opts ...Option) *Table {
	t := &Table{
		entries: map[string]Info{},
		ttl:     DefaultTTL,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// tryGet returns the live lock for id. Expired entries are removed and
// reported as absent. The caller must hold t.mu.
func (t *Table) tryGet(id string) (Info, bool) {
	i, ok := t.entries[id]
	if !ok {
		return Info{}, false
	}
	if t.now().Sub(i.CreatedAt) >= t.ttl {
		delete(t.entries, id)
		return Info{}, false
	}
	return i, true
}

// Lock acquires or refreshes the lock on id. Acquiring succeeds on an
// unlocked file; presenting the currently held lock string refreshes its
// validity window; any other lock string is a mismatch.
func (t *Table) Lock(id, lck string) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, held := t.tryGet(id)
	if held && cur.Lock != lck {
		return Result{Lock: cur.Lock}
	}
	t.entries[id] = Info{Lock: lck, CreatedAt: t.now()}
	return Result{OK: true, Lock: lck}
}

// Unlock releases the lock on id if lck matches the held lock.
func (t *Table) Unlock(id, lck string) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, held := t.tryGet(id)
	if !held {
		return Result{Reason: ReasonNotLocked}
	}
	if cur.Lock != lck {
		return Result{Lock: cur.Lock}
	}
	delete(t.entries, id)
	return Result{OK: true}
}

// Refresh extends the validity window of the held lock if lck matches.
func (t *Table) Refresh(id, lck string) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, held := t.tryGet(id)
	if !held {
		return Result{Reason: ReasonNotLocked}
	}
	if cur.Lock != lck {
		return Result{Lock: cur.Lock}
	}
	t.entries[id] = Info{Lock: lck, CreatedAt: t.now()}
	return Result{OK: true, Lock: lck}
}

// Relock atomically replaces the held lock oldLck with newLck.
func (t *Table) Relock(id, oldLck, newLck string) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, held := t.tryGet(id)
	if !held {
		return Result{Reason: ReasonNotLocked}
	}
	if cur.Lock != oldLck {
		return Result{Lock: cur.Lock}
	}
	t.entries[id] = Info{Lock: newLck, CreatedAt: t.now()}
	return Result{OK: true, Lock: newLck}
}

// Get returns the lock currently held on id, if any.
func (t *Table) Get(id string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, held := t.tryGet(id)
	return cur.Lock, held
}

// Check reports whether an operation presenting lck may mutate id:
// the file must be unlocked or locked with exactly lck. Check does not
// refresh the lock.
func (t *Table) Check(id, lck string) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, held := t.tryGet(id)
	if held && cur.Lock != lck {
		return Result{Lock: cur.Lock}
	}
	return Result{OK: true, Lock: lck}
}
