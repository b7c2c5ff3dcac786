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

// Package server implements the tunnel server: it accepts carriers, sends
// the port announcement, and on each HostConnect dials the target on the
// client's behalf, forwarding bytes over the matching connection-id.
package server

import (
	"context"
	"log"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/tcp-warp/tcp-warp/conntrack"
	"github.com/tcp-warp/tcp-warp/stats"
	"github.com/tcp-warp/tcp-warp/wire"
)

// Engine holds one server's static configuration: where to listen, which
// host to dial for a HostConnect that carries no host of its own, and which
// ports to advertise.
type Engine struct {
	ListenAddress  string
	ConnectAddress string
	Ports          []uint16

	// Compress wraps every accepted carrier connection in a snappy
	// CompConn. Both peers must agree on this; there is no negotiation.
	Compress bool

	// Stats collects connection and byte counters across every session this
	// engine accepts. Nil disables counting.
	Stats *stats.Counters
}

// Listen binds ListenAddress and spawns one session per accepted carrier,
// until ctx is done or the listener errors.
func (e *Engine) Listen(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", e.ListenAddress)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		go e.handleSession(ctx, conn)
	}
}

// handleSession runs one carrier session to completion: send AddPorts,
// then spawn egress and ingress and wait for both to finish.
func (e *Engine) handleSession(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var carrier net.Conn = conn
	if e.Compress {
		carrier = wire.NewCompConn(conn)
	}

	if err := wire.Encode(carrier, wire.AddPorts{Ports: e.Ports}); err != nil {
		log.Printf("server: could not send AddPorts: %v", err)
		return
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	table := conntrack.New()
	queue := make(chan egressItem, 100)

	var g errgroup.Group
	g.Go(func() error {
		runEgress(carrier, queue, table, e.Stats)
		return nil
	})
	g.Go(func() error {
		runIngress(ctx, carrier, queue, e.ConnectAddress, e.Stats)
		return nil
	})

	_ = g.Wait()
}
