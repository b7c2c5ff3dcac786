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
	"context"
	"io"
	"log"

	"github.com/tcp-warp/tcp-warp/stats"
	"github.com/tcp-warp/tcp-warp/wire"
	"github.com/tcp-warp/tcp-warp/worker"
)

// runIngress reads frames off the carrier and dispatches them per §4.3.1.
// On any read error it queues a shutdownMsg, which unwinds egress, and returns.
func runIngress(ctx context.Context, r io.Reader, queue chan<- egressItem, connectAddress string, counters *stats.Counters) {
	dec := wire.NewDecoder(r)
	for {
		frame, err := dec.Next()
		if err != nil {
			queue <- shutdownMsg{}
			return
		}

		switch f := frame.(type) {
		case wire.HostConnect:
			go dialAndIntroduce(ctx, f, queue, connectAddress, counters)

		case wire.BytesClient, wire.DisconnectClient:
			queue <- f

		default:
			log.Printf("server: ingress: dropping unexpected frame %T", frame)
		}
	}
}

// dialAndIntroduce opens the target connection a HostConnect asked for and,
// on success, hands the resulting socket to a worker after introducing it
// to the session via connectForwardMsg. On failure it reports
// ConnectFailure instead of ever touching the table.
func dialAndIntroduce(ctx context.Context, req wire.HostConnect, queue chan<- egressItem, connectAddress string, counters *stats.Counters) {
	conn, err := dialTarget(req.Host, req.Port, connectAddress)
	if err != nil {
		log.Printf("server: could not dial target for %s: %v", req.ConnID, err)
		queue <- connectFailureMsg{id: req.ConnID}
		return
	}

	toWorker := make(chan []byte, 100)
	done := make(chan struct{})

	select {
	case queue <- connectForwardMsg{id: req.ConnID, toWorker: toWorker, done: done}:
	case <-ctx.Done():
		conn.Close()
		return
	}

	worker.Run(ctx, worker.Config{
		ConnID:     req.ConnID,
		Conn:       conn,
		ToEgress:   queue,
		FromEgress: toWorker,
		Done:       done,
		Sink:       wire.HostSink{},
		Stats:      counters,
	})
}
