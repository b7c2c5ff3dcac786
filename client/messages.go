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

package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/tcp-warp/tcp-warp/conntrack"
)

// egressItem is everything that can be queued onto a session's egress
// channel: either a wire.Frame (relayed by ingress toward a worker, or sent
// by a worker toward the carrier), or one of the three control messages
// below, produced by an accept loop, listener setup, or ingress on carrier
// loss. It is a plain alias for interface{},
// not a defined type, so it stays channel-assignment compatible with the
// worker package's chan<- interface{} egress sender. Keeping the name
// mirrors the tagged union the carrier protocol itself uses for frames.
type egressItem = interface{}

// connectMsg is how a freshly accepted local socket introduces itself to
// the session: allocate me a table entry and ask the server to dial
// host:port on my behalf. The worker is reachable only through toWorker
// from this point on; it never gets a reference to the table.
type connectMsg struct {
	id        uuid.UUID
	host      string
	port      uint16
	toWorker  chan []byte
	connected *conntrack.Gate
	done      chan struct{}
}

// listenerMsg registers a listener's cancel function so egress can abort it
// on carrier teardown.
type listenerMsg struct {
	cancel context.CancelFunc
}

// shutdownMsg tells egress the carrier read half ended. Egress aborts every
// registered listener and returns.
type shutdownMsg struct{}
