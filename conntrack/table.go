// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package conntrack holds the per-carrier table mapping connection-ids to
// the logical connections they name. The table has exactly one writer: the
// egress task of the owning carrier session. Everyone else only reads it
// through Get/Len/Each, which take the table's own lock, or reaches a
// connection through the channels an Entry hands out.
package conntrack

import (
	"sync"

	"github.com/google/uuid"
)

// Entry is everything the egress task needs to reach a logical connection's
// worker once a frame arrives naming its ConnID.
type Entry struct {
	// ToWorker delivers inbound payload bytes to the worker's write side.
	ToWorker chan<- []byte

	// Connected gates the worker's first write to its local socket until
	// the remote peer confirms its own dial succeeded. Only populated on
	// the side that waits (the client); nil on the server, which never
	// waits on itself.
	Connected *Gate

	// Done is closed by the worker once both its reader and writer tasks
	// have exited. Egress selects on it alongside a ToWorker send so data
	// destined for an already-gone worker is dropped instead of blocking
	// the session's one egress goroutine forever.
	Done <-chan struct{}
}

// Table is the single authoritative map from connection-id to Entry for one
// carrier session. It is owned by the session's egress task: only that
// goroutine may call Set/Delete. Readers other than the owner should treat
// it as a live snapshot and use Get, which takes the lock.
type Table struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
}

// New returns an empty table.
func New() *Table {
	return &Table{entries: make(map[uuid.UUID]*Entry)}
}

// Get returns the entry for id, if any.
func (t *Table) Get(id uuid.UUID) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	return e, ok
}

// Set installs or replaces the entry for id. Only the owning egress task
// should call this.
func (t *Table) Set(id uuid.UUID, e *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = e
}

// Delete removes id from the table. Only the owning egress task should call
// this. It is a no-op if id is not present.
func (t *Table) Delete(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

// Len reports the number of live connections, for stats reporting.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Each calls fn for every entry currently in the table. fn must not call
// back into Set or Delete on t.
func (t *Table) Each(fn func(id uuid.UUID, e *Entry)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for id, e := range t.entries {
		fn(id, e)
	}
}
