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

// Package stats tracks counters for one carrier peer (client or server) and
// can periodically dump them to a CSV file, the same shape kcptun's SNMP
// logger uses for its protocol counters.
package stats

import (
	"strconv"
	"sync/atomic"
)

// Counters is safe for concurrent use; every field is updated with atomic
// operations from whichever worker or session task observes the event.
type Counters struct {
	ConnectionsOpened int64
	ConnectionsClosed int64
	BytesIn           int64
	BytesOut          int64
	ConnectFailures   int64
}

func (c *Counters) AddConnectionOpened() { atomic.AddInt64(&c.ConnectionsOpened, 1) }
func (c *Counters) AddConnectionClosed() { atomic.AddInt64(&c.ConnectionsClosed, 1) }
func (c *Counters) AddBytesIn(n int64)   { atomic.AddInt64(&c.BytesIn, n) }
func (c *Counters) AddBytesOut(n int64)  { atomic.AddInt64(&c.BytesOut, n) }
func (c *Counters) AddConnectFailure()   { atomic.AddInt64(&c.ConnectFailures, 1) }

// Header names the columns ToSlice reports, in order.
func (c *Counters) Header() []string {
	return []string{
		"ConnectionsOpened",
		"ConnectionsClosed",
		"BytesIn",
		"BytesOut",
		"ConnectFailures",
	}
}

// ToSlice snapshots every counter as a string, matching Header's order.
func (c *Counters) ToSlice() []string {
	return []string{
		strconv.FormatInt(atomic.LoadInt64(&c.ConnectionsOpened), 10),
		strconv.FormatInt(atomic.LoadInt64(&c.ConnectionsClosed), 10),
		strconv.FormatInt(atomic.LoadInt64(&c.BytesIn), 10),
		strconv.FormatInt(atomic.LoadInt64(&c.BytesOut), 10),
		strconv.FormatInt(atomic.LoadInt64(&c.ConnectFailures), 10),
	}
}
