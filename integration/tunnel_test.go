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

// Package integration exercises the client and server engines end to end
// over real loopback sockets, covering the scenarios a redirect/multiplex
// deployment of the tunnel needs to get right.
package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/tcp-warp/tcp-warp/addr"
	"github.com/tcp-warp/tcp-warp/client"
	"github.com/tcp-warp/tcp-warp/server"
)

// freePort returns an available TCP port on loopback.
func freePort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("freePort: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return uint16(port)
}

// tcpEchoServer starts a TCP server that echoes back everything it reads.
func tcpEchoServer(t *testing.T, port uint16) func() {
	t.Helper()
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("tcpEchoServer: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				io.Copy(c, c)
			}(conn)
		}
	}()
	return func() { ln.Close() }
}

// dialRetry dials address, retrying until deadline since the client's local
// listener only exists once the carrier handshake (AddPorts) completes.
func dialRetry(address string, timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", address, 200*time.Millisecond)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		time.Sleep(20 * time.Millisecond)
	}
	return nil, fmt.Errorf("dialRetry: %s: %w", address, lastErr)
}

// dialWithRetry is dialRetry for use directly from the test goroutine, where
// failing via t.Fatalf is safe.
func dialWithRetry(t *testing.T, address string, timeout time.Duration) net.Conn {
	t.Helper()
	conn, err := dialRetry(address, timeout)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return conn
}

func startServer(t *testing.T, ctx context.Context, listenAddr, connectAddr string, ports []uint16) {
	t.Helper()
	startServerCompressed(t, ctx, listenAddr, connectAddr, ports, false)
}

func startServerCompressed(t *testing.T, ctx context.Context, listenAddr, connectAddr string, ports []uint16, compress bool) {
	t.Helper()
	engine := &server.Engine{
		ListenAddress:  listenAddr,
		ConnectAddress: connectAddr,
		Ports:          ports,
		Compress:       compress,
	}
	go func() {
		if err := engine.Listen(ctx); err != nil && ctx.Err() == nil {
			t.Logf("server engine: %v", err)
		}
	}()
}

func pc(clientPort, port uint16) addr.PortConnection {
	cp := clientPort
	return addr.PortConnection{ClientPort: &cp, Port: port}
}

func pcHost(clientPort uint16, host string, port uint16) addr.PortConnection {
	cp := clientPort
	h := host
	return addr.PortConnection{ClientPort: &cp, Host: &h, Port: port}
}

// TestSingleRedirect covers §8 scenario 1: one redirect through the tunnel
// round-trips a line of text.
func TestSingleRedirect(t *testing.T) {
	upstream := freePort(t)
	stopEcho := tcpEchoServer(t, upstream)
	defer stopEcho()

	tunnelPort := freePort(t)
	clientPort := freePort(t)
	tunnelAddr := fmt.Sprintf("127.0.0.1:%d", tunnelPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startServer(t, ctx, tunnelAddr, "127.0.0.1", []uint16{upstream})

	clientEngine := &client.Engine{
		BindAddress:   net.ParseIP("0.0.0.0"),
		TunnelAddress: tunnelAddr,
		Connections:   []addr.PortConnection{pc(clientPort, upstream)},
	}
	go clientEngine.Connect(ctx)

	conn := dialWithRetry(t, fmt.Sprintf("127.0.0.1:%d", clientPort), 3*time.Second)
	defer conn.Close()

	if _, err := conn.Write([]byte("ping\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, len("ping\n"))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "ping\n" {
		t.Fatalf("echo mismatch: got %q", buf)
	}
}

// TestMultiplex covers §8 scenario 2: two concurrent logical connections
// through the same advertised port each stream 1 MiB of distinct random
// bytes and see it echoed back intact and un-interleaved.
func TestMultiplex(t *testing.T) {
	upstream := freePort(t)
	stopEcho := tcpEchoServer(t, upstream)
	defer stopEcho()

	tunnelPort := freePort(t)
	clientPort := freePort(t)
	tunnelAddr := fmt.Sprintf("127.0.0.1:%d", tunnelPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startServer(t, ctx, tunnelAddr, "127.0.0.1", []uint16{upstream})

	clientEngine := &client.Engine{
		BindAddress:   net.ParseIP("0.0.0.0"),
		TunnelAddress: tunnelAddr,
		Connections:   []addr.PortConnection{pc(clientPort, upstream)},
	}
	go clientEngine.Connect(ctx)

	run := func(seed int64, size int) error {
		conn, err := dialRetry(fmt.Sprintf("127.0.0.1:%d", clientPort), 3*time.Second)
		if err != nil {
			return err
		}
		defer conn.Close()

		payload := make([]byte, size)
		rand.New(rand.NewSource(seed)).Read(payload)

		var wg sync.WaitGroup
		var writeErr error
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, writeErr = conn.Write(payload)
			if tc, ok := conn.(*net.TCPConn); ok {
				tc.CloseWrite()
			}
		}()

		received, readErr := io.ReadAll(conn)
		wg.Wait()

		if writeErr != nil {
			return writeErr
		}
		if readErr != nil {
			return readErr
		}
		if !bytes.Equal(received, payload) {
			return fmt.Errorf("payload mismatch: got %d bytes, want %d", len(received), len(payload))
		}
		return nil
	}

	const mib = 1 << 20
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); errs <- run(1, mib) }()
	go func() { defer wg.Done(); errs <- run(2, mib) }()
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
}

// TestExplicitHostConnect covers §8 scenario 3: a --connection entry naming
// an explicit host makes the server dial that host via HostConnect.Host,
// not its own default ConnectAddress.
func TestExplicitHostConnect(t *testing.T) {
	upstream := freePort(t)
	stopEcho := tcpEchoServer(t, upstream)
	defer stopEcho()

	tunnelPort := freePort(t)
	clientPort := freePort(t)
	tunnelAddr := fmt.Sprintf("127.0.0.1:%d", tunnelPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ConnectAddress deliberately names an address nothing listens on;
	// if the server fell back to it instead of honoring the explicit
	// host below, the dial would fail and this test would time out.
	startServer(t, ctx, tunnelAddr, "127.0.0.2", []uint16{upstream})

	clientEngine := &client.Engine{
		BindAddress:   net.ParseIP("0.0.0.0"),
		TunnelAddress: tunnelAddr,
		Connections:   []addr.PortConnection{pcHost(clientPort, "127.0.0.1", upstream)},
	}
	go clientEngine.Connect(ctx)

	conn := dialWithRetry(t, fmt.Sprintf("127.0.0.1:%d", clientPort), 3*time.Second)
	defer conn.Close()

	if _, err := conn.Write([]byte("via host\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, len("via host\n"))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "via host\n" {
		t.Fatalf("echo mismatch: got %q", buf)
	}
}

// TestCompressedCarrier exercises wire.CompConn wired through both engines'
// Compress option: the carrier itself is snappy-compressed end to end, and
// a redirect through it still round-trips intact.
func TestCompressedCarrier(t *testing.T) {
	upstream := freePort(t)
	stopEcho := tcpEchoServer(t, upstream)
	defer stopEcho()

	tunnelPort := freePort(t)
	clientPort := freePort(t)
	tunnelAddr := fmt.Sprintf("127.0.0.1:%d", tunnelPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startServerCompressed(t, ctx, tunnelAddr, "127.0.0.1", []uint16{upstream}, true)

	clientEngine := &client.Engine{
		BindAddress:   net.ParseIP("0.0.0.0"),
		TunnelAddress: tunnelAddr,
		Connections:   []addr.PortConnection{pc(clientPort, upstream)},
		Compress:      true,
	}
	go clientEngine.Connect(ctx)

	conn := dialWithRetry(t, fmt.Sprintf("127.0.0.1:%d", clientPort), 3*time.Second)
	defer conn.Close()

	if _, err := conn.Write([]byte("compressed ping\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, len("compressed ping\n"))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "compressed ping\n" {
		t.Fatalf("echo mismatch: got %q", buf)
	}
}

// TestTargetRefused covers §8 scenario 4: a dead target closes the accepted
// client socket but leaves the carrier usable for subsequent connections.
func TestTargetRefused(t *testing.T) {
	deadPort := freePort(t)
	upstream := freePort(t)
	stopEcho := tcpEchoServer(t, upstream)
	defer stopEcho()

	tunnelPort := freePort(t)
	deadClientPort := freePort(t)
	liveClientPort := freePort(t)
	tunnelAddr := fmt.Sprintf("127.0.0.1:%d", tunnelPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startServer(t, ctx, tunnelAddr, "127.0.0.1", []uint16{deadPort, upstream})

	clientEngine := &client.Engine{
		BindAddress:   net.ParseIP("0.0.0.0"),
		TunnelAddress: tunnelAddr,
		Connections: []addr.PortConnection{
			pc(deadClientPort, deadPort),
			pc(liveClientPort, upstream),
		},
	}
	go clientEngine.Connect(ctx)

	deadConn := dialWithRetry(t, fmt.Sprintf("127.0.0.1:%d", deadClientPort), 3*time.Second)
	defer deadConn.Close()
	deadConn.Write([]byte("hello"))
	deadConn.SetReadDeadline(time.Now().Add(3 * time.Second))
	buf := make([]byte, 1)
	if _, err := deadConn.Read(buf); err == nil {
		t.Fatal("expected the dead-target connection to close, got a successful read")
	}

	// The carrier must still be usable for a subsequent, working connection.
	liveConn := dialWithRetry(t, fmt.Sprintf("127.0.0.1:%d", liveClientPort), 3*time.Second)
	defer liveConn.Close()
	if _, err := liveConn.Write([]byte("still alive\n")); err != nil {
		t.Fatalf("write on live connection: %v", err)
	}
	out := make([]byte, len("still alive\n"))
	if _, err := io.ReadFull(liveConn, out); err != nil {
		t.Fatalf("read on live connection: %v", err)
	}
	if string(out) != "still alive\n" {
		t.Fatalf("echo mismatch on live connection: got %q", out)
	}
}

// TestRetryWithReuse covers §8 scenario 5: the client reconnects after the
// carrier drops and keeps accepting new connections on the same listener.
func TestRetryWithReuse(t *testing.T) {
	upstream := freePort(t)
	stopEcho := tcpEchoServer(t, upstream)
	defer stopEcho()

	tunnelPort := freePort(t)
	clientPort := freePort(t)
	tunnelAddr := fmt.Sprintf("127.0.0.1:%d", tunnelPort)

	serverCtx, cancelServer := context.WithCancel(context.Background())
	startServer(t, serverCtx, tunnelAddr, "127.0.0.1", []uint16{upstream})

	clientCtx, cancelClient := context.WithCancel(context.Background())
	defer cancelClient()

	clientEngine := &client.Engine{
		BindAddress:   net.ParseIP("0.0.0.0"),
		TunnelAddress: tunnelAddr,
		Connections:   []addr.PortConnection{pc(clientPort, upstream)},
	}
	go clientEngine.ConnectLoop(clientCtx, 200*time.Millisecond, true)

	// First round-trip against the original carrier.
	conn1 := dialWithRetry(t, fmt.Sprintf("127.0.0.1:%d", clientPort), 3*time.Second)
	if _, err := conn1.Write([]byte("one\n")); err != nil {
		t.Fatalf("write before restart: %v", err)
	}
	buf := make([]byte, len("one\n"))
	if _, err := io.ReadFull(conn1, buf); err != nil {
		t.Fatalf("read before restart: %v", err)
	}

	// Kill the server and wait for the client's accepted socket to observe
	// the drop, then restart a fresh server on the same address.
	cancelServer()
	conn1.SetReadDeadline(time.Now().Add(2 * time.Second))
	io.ReadAll(conn1)
	conn1.Close()

	time.Sleep(300 * time.Millisecond)

	serverCtx2, cancelServer2 := context.WithCancel(context.Background())
	defer cancelServer2()
	startServer(t, serverCtx2, tunnelAddr, "127.0.0.1", []uint16{upstream})

	// The retry loop should reconnect and re-announce listeners; new
	// connections on the same local port should work again.
	conn2 := dialWithRetry(t, fmt.Sprintf("127.0.0.1:%d", clientPort), 5*time.Second)
	defer conn2.Close()
	if _, err := conn2.Write([]byte("two\n")); err != nil {
		t.Fatalf("write after restart: %v", err)
	}
	buf2 := make([]byte, len("two\n"))
	if _, err := io.ReadFull(conn2, buf2); err != nil {
		t.Fatalf("read after restart: %v", err)
	}
	if string(buf2) != "two\n" {
		t.Fatalf("echo mismatch after restart: got %q", buf2)
	}
}
