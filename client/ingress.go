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
	"io"
	"log"
	"net"

	"github.com/google/uuid"

	"github.com/tcp-warp/tcp-warp/addr"
	"github.com/tcp-warp/tcp-warp/conntrack"
	"github.com/tcp-warp/tcp-warp/stats"
	"github.com/tcp-warp/tcp-warp/wire"
	"github.com/tcp-warp/tcp-warp/worker"
)

// runIngress reads frames off the carrier read half and dispatches them
// per §4.2.1: AddPorts triggers the local listeners, the rest are relayed
// to egress (which alone may touch the table). On any read error it tells
// egress the carrier is gone and returns.
func runIngress(rootCtx context.Context, r io.Reader, queue chan<- egressItem, bindAddress net.IP, connections []addr.PortConnection, counters *stats.Counters) {
	dec := wire.NewDecoder(r)
	for {
		frame, err := dec.Next()
		if err != nil {
			queue <- shutdownMsg{}
			return
		}

		switch f := frame.(type) {
		case wire.AddPorts:
			for _, pc := range connections {
				startListener(rootCtx, bindAddress, pc, queue, counters)
			}

		case wire.BytesHost, wire.Connected, wire.DisconnectHost, wire.ConnectFailure:
			queue <- f

		default:
			log.Printf("client: ingress: dropping unexpected frame %T", frame)
		}
	}
}

// startListener binds one local port and registers its cancel func with
// egress before accepting anything. The listener's own context is derived
// from rootCtx, not the session's lifetime, so the carrier's Disconnect
// message (via listenerMsg bookkeeping in egress) stays the one mechanism
// that tears it down; a listener never outlives the process on its own.
func startListener(rootCtx context.Context, bindAddress net.IP, pc addr.PortConnection, queue chan<- egressItem, counters *stats.Counters) {
	laddr := &net.TCPAddr{IP: bindAddress, Port: int(pc.ListenPort())}
	ln, err := net.ListenTCP("tcp", laddr)
	if err != nil {
		log.Printf("client: could not bind listener on %s: %v", laddr, err)
		return
	}

	lctx, cancel := context.WithCancel(rootCtx)
	go func() {
		<-lctx.Done()
		ln.Close()
	}()

	queue <- listenerMsg{cancel: cancel}

	go acceptLoop(lctx, ln, pc, queue, counters)
}

func acceptLoop(ctx context.Context, ln *net.TCPListener, pc addr.PortConnection, queue chan<- egressItem, counters *stats.Counters) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go acceptOne(ctx, conn, pc, queue, counters)
	}
}

// acceptOne allocates a connection-id for a freshly accepted socket,
// introduces it to the session via connectMsg, then runs its worker.
func acceptOne(ctx context.Context, conn net.Conn, pc addr.PortConnection, queue chan<- egressItem, counters *stats.Counters) {
	id := uuid.New()
	toWorker := make(chan []byte, 100)
	gate := conntrack.NewGate()
	done := make(chan struct{})

	host := ""
	if pc.Host != nil {
		host = *pc.Host
	}

	select {
	case queue <- connectMsg{id: id, host: host, port: pc.Port, toWorker: toWorker, connected: gate, done: done}:
	case <-ctx.Done():
		conn.Close()
		return
	}

	worker.Run(ctx, worker.Config{
		ConnID:     id,
		Conn:       conn,
		ToEgress:   queue,
		FromEgress: toWorker,
		Connected:  gate,
		Done:       done,
		Sink:       wire.ClientSink{},
		Stats:      counters,
	})
}
