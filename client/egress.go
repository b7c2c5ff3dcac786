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
	"errors"
	"io"
	"log"

	"github.com/tcp-warp/tcp-warp/conntrack"
	"github.com/tcp-warp/tcp-warp/stats"
	"github.com/tcp-warp/tcp-warp/wire"
)

// errTargetRefused is the error handed to a worker's Connected gate when the
// server reports it could not reach the configured target, so the worker's
// accepted socket closes instead of hanging forever.
var errTargetRefused = errors.New("client: server reported connect failure")

// runEgress is the session's sole table writer. It drains queue, which
// carries both local control messages (connect requests, listener
// bookkeeping) and frames ingress relayed from the carrier, and is the only
// goroutine that ever writes to w. It updates table in place, so whatever
// entries remain when it returns are what the caller can carry across a
// reconnect.
func runEgress(w io.Writer, queue <-chan egressItem, table *conntrack.Table, counters *stats.Counters) {
	var listeners []func()

	for item := range queue {
		switch m := item.(type) {
		case connectMsg:
			table.Set(m.id, &conntrack.Entry{ToWorker: m.toWorker, Connected: m.connected, Done: m.done})
			if counters != nil {
				counters.AddConnectionOpened()
			}
			if err := wire.Encode(w, wire.HostConnect{ConnID: m.id, Host: m.host, Port: m.port}); err != nil {
				log.Printf("client: egress: write HostConnect: %v", err)
			}

		case listenerMsg:
			listeners = append(listeners, m.cancel)

		case shutdownMsg:
			for _, cancel := range listeners {
				cancel()
			}
			return

		case wire.BytesHost:
			e, ok := table.Get(m.ConnID)
			if !ok {
				log.Printf("client: egress: data for unknown connection %s", m.ConnID)
				continue
			}
			select {
			case e.ToWorker <- m.Data:
			case <-e.Done:
				log.Printf("client: egress: worker for %s already gone, dropping data", m.ConnID)
			}

		case wire.Connected:
			e, ok := table.Get(m.ConnID)
			if !ok {
				log.Printf("client: egress: connected for unknown connection %s", m.ConnID)
				continue
			}
			if e.Connected != nil {
				e.Connected.Fire(nil)
			}

		case wire.ConnectFailure:
			e, ok := table.Get(m.ConnID)
			if !ok {
				log.Printf("client: egress: connect failure for unknown connection %s", m.ConnID)
				continue
			}
			table.Delete(m.ConnID)
			if e.Connected != nil {
				e.Connected.Fire(errTargetRefused)
			}
			if counters != nil {
				counters.AddConnectFailure()
			}

		case wire.DisconnectHost:
			e, ok := table.Get(m.ConnID)
			if !ok {
				log.Printf("client: egress: disconnect for unknown connection %s", m.ConnID)
				continue
			}
			table.Delete(m.ConnID)
			close(e.ToWorker)
			if counters != nil {
				counters.AddConnectionClosed()
			}

		case wire.Frame:
			// A worker-originated frame (BytesClient, DisconnectClient)
			// that needs no table lookup: just relay it to the carrier.
			if err := wire.Encode(w, m); err != nil {
				log.Printf("client: egress: write %T: %v", m, err)
			}

		default:
			log.Printf("client: egress: dropping unexpected item %T", item)
		}
	}
}
