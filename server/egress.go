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
	"io"
	"log"

	"github.com/tcp-warp/tcp-warp/conntrack"
	"github.com/tcp-warp/tcp-warp/stats"
	"github.com/tcp-warp/tcp-warp/wire"
)

// runEgress is the session's sole table writer, mirroring the client
// package's egress loop but with the server's half of the dispatch table
// (§4.3.2). It returns when it receives the shutdownMsg that ingress queues
// once its carrier read ends.
func runEgress(w io.Writer, queue <-chan egressItem, table *conntrack.Table, counters *stats.Counters) {
	for item := range queue {
		switch m := item.(type) {
		case shutdownMsg:
			return

		case connectForwardMsg:
			table.Set(m.id, &conntrack.Entry{ToWorker: m.toWorker, Done: m.done})
			if counters != nil {
				counters.AddConnectionOpened()
			}
			if err := wire.Encode(w, wire.Connected{ConnID: m.id}); err != nil {
				log.Printf("server: egress: write Connected: %v", err)
			}

		case connectFailureMsg:
			if counters != nil {
				counters.AddConnectFailure()
			}
			if err := wire.Encode(w, wire.ConnectFailure{ConnID: m.id}); err != nil {
				log.Printf("server: egress: write ConnectFailure: %v", err)
			}

		case wire.BytesClient:
			e, ok := table.Get(m.ConnID)
			if !ok {
				// The client may still hold an id from before a
				// keep-connections reconnect that this session never
				// dialed. Tell it to drain the entry instead of
				// silently dropping forever.
				log.Printf("server: egress: data for unknown connection %s, disconnecting", m.ConnID)
				if err := wire.Encode(w, wire.DisconnectHost{ConnID: m.ConnID}); err != nil {
					log.Printf("server: egress: write DisconnectHost: %v", err)
				}
				continue
			}
			select {
			case e.ToWorker <- m.Data:
			case <-e.Done:
				log.Printf("server: egress: worker for %s already gone, dropping data", m.ConnID)
			}

		case wire.DisconnectClient:
			e, ok := table.Get(m.ConnID)
			if !ok {
				log.Printf("server: egress: disconnect for unknown connection %s", m.ConnID)
				continue
			}
			table.Delete(m.ConnID)
			close(e.ToWorker)
			if counters != nil {
				counters.AddConnectionClosed()
			}

		case wire.Frame:
			// The server's own worker reporting its target socket is
			// gone (DisconnectHost): pure pass-through onto the wire.
			if err := wire.Encode(w, m); err != nil {
				log.Printf("server: egress: write %T: %v", m, err)
			}

		default:
			log.Printf("server: egress: dropping unexpected item %T", item)
		}
	}
}
