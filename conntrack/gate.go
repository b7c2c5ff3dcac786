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

package conntrack

import "context"

// Gate is a one-shot signal fired exactly once, with either a nil error
// (dial succeeded, proceed) or a non-nil one (dial failed, tear down). It
// exists so a client worker can block its first read of the local socket
// until the server confirms the far end is actually reachable, without the
// worker needing to know anything about carrier frames.
type Gate struct {
	ch chan error
}

// NewGate returns an armed, unfired gate.
func NewGate() *Gate {
	return &Gate{ch: make(chan error, 1)}
}

// Fire signals the gate. Only the first call has any effect; later calls
// are silently dropped, matching the carrier protocol's guarantee that a
// connection-id gets at most one of Connected or ConnectFailure.
func (g *Gate) Fire(err error) {
	select {
	case g.ch <- err:
	default:
	}
}

// Wait blocks until Fire is called or ctx is done, whichever comes first.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case err := <-g.ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
