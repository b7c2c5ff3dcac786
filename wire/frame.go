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

// Package wire implements the length-prefixed binary framing used on the
// carrier connection between a tcp-warp client and server.
package wire

import "github.com/google/uuid"

// Opcode identifies the kind of frame on the wire. It is always the first
// byte of an encoded frame.
type Opcode byte

const (
	OpAddPorts         Opcode = 1
	OpHostConnect      Opcode = 2
	OpBytesClient      Opcode = 3
	OpBytesHost        Opcode = 4
	OpConnected        Opcode = 5
	OpDisconnectHost   Opcode = 6
	OpDisconnectClient Opcode = 7
	OpConnectFailure   Opcode = 8
)

// Frame is any message that can cross the carrier. Concrete types below
// implement it; the value Opcode() returns identifies which one.
type Frame interface {
	Opcode() Opcode
}

// AddPorts is sent by the server immediately after accepting a carrier,
// before anything else, announcing the ports it was configured to expose.
// An empty list is valid and still triggers the client's listeners.
type AddPorts struct {
	Ports []uint16
}

func (AddPorts) Opcode() Opcode { return OpAddPorts }

// HostConnect asks the server to dial a target on behalf of a connection-id
// the client just allocated. Host may be empty, in which case the server
// falls back to its own configured default target host.
type HostConnect struct {
	ConnID uuid.UUID
	Host   string
	Port   uint16
}

func (HostConnect) Opcode() Opcode { return OpHostConnect }

// BytesClient carries bytes that originated on the client's local socket for
// connection ConnID, destined for the target the server dialed.
type BytesClient struct {
	ConnID uuid.UUID
	Data   []byte
}

func (BytesClient) Opcode() Opcode { return OpBytesClient }

// BytesHost carries bytes that originated on the target socket the server
// dialed for connection ConnID, destined for the client's local socket.
type BytesHost struct {
	ConnID uuid.UUID
	Data   []byte
}

func (BytesHost) Opcode() Opcode { return OpBytesHost }

// Connected tells the client that the server's target dial for ConnID
// succeeded, unblocking the client worker's first write.
type Connected struct {
	ConnID uuid.UUID
}

func (Connected) Opcode() Opcode { return OpConnected }

// DisconnectHost tells the peer that the server side of ConnID is gone.
type DisconnectHost struct {
	ConnID uuid.UUID
}

func (DisconnectHost) Opcode() Opcode { return OpDisconnectHost }

// DisconnectClient tells the peer that the client side of ConnID is gone.
type DisconnectClient struct {
	ConnID uuid.UUID
}

func (DisconnectClient) Opcode() Opcode { return OpDisconnectClient }

// ConnectFailure tells the client that the server could not dial the target
// for ConnID; the client should drop the matching table entry.
type ConnectFailure struct {
	ConnID uuid.UUID
}

func (ConnectFailure) Opcode() Opcode { return OpConnectFailure }
