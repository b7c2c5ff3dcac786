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

// Package worker runs the pair of tasks that pump bytes between one local
// TCP socket and one logical connection's slot in the carrier session. Both
// the client and the server run the same worker; only the Sink passed in
// differs, which is what picks BytesClient/DisconnectClient versus
// BytesHost/DisconnectHost on the wire.
package worker

import (
	"context"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/tcp-warp/tcp-warp/conntrack"
	"github.com/tcp-warp/tcp-warp/stats"
	"github.com/tcp-warp/tcp-warp/wire"
)

// readBufSize bounds a single read off the local socket before it is
// shipped to the carrier as one data frame.
const readBufSize = 4096

// Config describes one logical connection's worker pair.
type Config struct {
	ConnID uuid.UUID
	Conn   net.Conn

	// ToEgress is the session's bounded outbound queue; both the reader's
	// data frames and Run's final disconnect frame go through it. It is typed
	// as chan<- interface{} rather than chan<- wire.Frame because the
	// owning session's queue also carries its own internal control
	// messages (connect requests, listener bookkeeping) alongside frames.
	ToEgress chan<- interface{}

	// FromEgress delivers inbound payload the egress task dispatched to
	// this connection-id. Closed by the owning session's egress when it
	// handles the remote peer's disconnect frame for this connection-id;
	// it is not closed when the carrier itself drops.
	FromEgress <-chan []byte

	// Connected gates the first local-socket read until the remote peer
	// confirms its dial succeeded. Nil on the server, which never waits
	// on itself.
	Connected *conntrack.Gate

	// Done is closed by Run once both halves of the worker exit, telling
	// the owning session's egress loop that nothing will drain FromEgress
	// any further.
	Done chan struct{}

	Sink wire.Sink

	// Stats collects byte counters for this connection's peer. Nil disables
	// counting.
	Stats *stats.Counters
}

// Run drives both the reader and writer halves of the connection and
// blocks until both finish, then emits exactly one disconnect frame toward
// egress. If the Connected gate reports an error, Run closes the socket and
// returns without starting either half or emitting a disconnect frame. It
// never returns an error: failures end the local socket and are
// folded into the disconnect signal the rest of the session already reacts
// to, matching how the wider carrier session treats connection teardown.
func Run(ctx context.Context, cfg Config) {
	if cfg.Connected != nil {
		if err := cfg.Connected.Wait(ctx); err != nil {
			cfg.Conn.Close()
			close(cfg.Done)
			return
		}
	}

	var closeOnce sync.Once
	closeConn := func() { closeOnce.Do(func() { cfg.Conn.Close() }) }

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer closeConn()
		runReader(ctx, cfg)
	}()

	go func() {
		defer wg.Done()
		defer closeConn()
		runWriter(cfg)
	}()

	wg.Wait()
	close(cfg.Done)

	select {
	case cfg.ToEgress <- cfg.Sink.Disconnect(cfg.ConnID):
	case <-ctx.Done():
	}
}

// runReader pumps bytes from the local socket into the egress queue as data
// frames, until the socket errs/EOFs or the session is torn down.
func runReader(ctx context.Context, cfg Config) {
	buf := make([]byte, readBufSize)
	for {
		n, err := cfg.Conn.Read(buf)
		if n > 0 {
			if cfg.Stats != nil {
				cfg.Stats.AddBytesOut(int64(n))
			}
			payload := append([]byte(nil), buf[:n]...)
			select {
			case cfg.ToEgress <- cfg.Sink.Data(cfg.ConnID, payload):
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// runWriter drains frames the egress task routed to this connection-id and
// writes their payload to the local socket, until told the remote side is
// gone or the channel closes.
func runWriter(cfg Config) {
	for data := range cfg.FromEgress {
		if cfg.Stats != nil {
			cfg.Stats.AddBytesIn(int64(len(data)))
		}
		if _, err := cfg.Conn.Write(data); err != nil {
			return
		}
	}
}
