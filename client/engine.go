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

// Package client implements the tunnel client: it dials the server's
// carrier, listens locally on the configured ports once the server's
// AddPorts announcement arrives, and multiplexes every accepted socket
// over the one carrier connection.
package client

import (
	"context"
	"log"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tcp-warp/tcp-warp/addr"
	"github.com/tcp-warp/tcp-warp/conntrack"
	"github.com/tcp-warp/tcp-warp/stats"
	"github.com/tcp-warp/tcp-warp/wire"
)

// Engine holds one client's static configuration: where to bind accepted
// sockets, where the carrier lives, and which ports to map.
type Engine struct {
	BindAddress   net.IP
	TunnelAddress string
	Connections   []addr.PortConnection

	// Compress wraps the carrier connection in a snappy CompConn. Both
	// peers must agree on this; there is no negotiation.
	Compress bool

	// Stats collects connection and byte counters across every session this
	// engine drives. Nil disables counting.
	Stats *stats.Counters
}

// Connect establishes a single carrier session and blocks until it ends,
// returning the table of whatever logical connections were still open.
func (e *Engine) Connect(ctx context.Context) *conntrack.Table {
	return e.connectWith(ctx, conntrack.New())
}

// ConnectLoop reconnects indefinitely, sleeping retryDelay between
// attempts. When keepConnections is true the table (and therefore every
// still-open logical connection's worker) survives a reconnect; otherwise
// each new session starts from an empty table. It returns only when ctx is
// done.
func (e *Engine) ConnectLoop(ctx context.Context, retryDelay time.Duration, keepConnections bool) error {
	table := conntrack.New()

	for {
		residual := e.connectWith(ctx, table)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if keepConnections {
			table = residual
		} else {
			table = conntrack.New()
		}

		log.Printf("client: retrying in %s", retryDelay)
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// connectWith dials the carrier once, runs the session to completion, and
// returns the table it ends with. A dial failure is not fatal to the
// caller: it is logged and the same table is handed back unchanged, so a
// retry loop can simply try again.
func (e *Engine) connectWith(ctx context.Context, table *conntrack.Table) *conntrack.Table {
	conn, err := net.Dial("tcp", e.TunnelAddress)
	if err != nil {
		log.Printf("client: cannot connect to tunnel: %v", err)
		return table
	}
	defer conn.Close()

	var carrier net.Conn = conn
	if e.Compress {
		carrier = wire.NewCompConn(conn)
	}

	// Unblock the ingress read if the caller's context ends; the egress
	// side has no blocking call of its own that needs the same treatment.
	stopWatcher := make(chan struct{})
	defer close(stopWatcher)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stopWatcher:
		}
	}()

	queue := make(chan egressItem, 100)

	var g errgroup.Group
	g.Go(func() error {
		runEgress(carrier, queue, table, e.Stats)
		return nil
	})
	g.Go(func() error {
		runIngress(ctx, carrier, queue, e.BindAddress, e.Connections, e.Stats)
		return nil
	})

	_ = g.Wait()
	return table
}
