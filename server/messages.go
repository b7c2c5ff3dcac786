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

package server

import (
	"github.com/google/uuid"
)

// egressItem is everything that can be queued onto a session's egress
// channel. A plain interface{} alias, see the client package's identical
// type for why this isn't a defined type.
type egressItem = interface{}

// connectForwardMsg is how a target dialer introduces a freshly dialed
// socket to the session: record its table entry and tell the client the
// dial succeeded. The server never waits on its own dial, so unlike the
// client's connectMsg this carries no Connected gate.
type connectForwardMsg struct {
	id       uuid.UUID
	toWorker chan []byte
	done     chan struct{}
}

// connectFailureMsg reports that dialing the target for id failed; egress
// relays a ConnectFailure frame to the client and never creates a table
// entry.
type connectFailureMsg struct {
	id uuid.UUID
}

// shutdownMsg tells egress the carrier read half ended. Unlike the client
// session, the server has no listeners to abort; it just stops the loop.
type shutdownMsg struct{}
