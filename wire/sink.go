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

package wire

import "github.com/google/uuid"

// Sink lets a logical-connection worker build the right frame variant for
// its side of the carrier without knowing whether it runs inside the client
// or the server. A worker only ever needs to say "here is data for id" or
// "id is gone"; which opcode that becomes depends on which peer is talking.
type Sink interface {
	Data(id uuid.UUID, data []byte) Frame
	Disconnect(id uuid.UUID) Frame
}

// ClientSink builds the frames a client sends toward the server: bytes that
// came off the locally-accepted socket, and the client-side disconnect.
type ClientSink struct{}

func (ClientSink) Data(id uuid.UUID, data []byte) Frame {
	return BytesClient{ConnID: id, Data: data}
}

func (ClientSink) Disconnect(id uuid.UUID) Frame {
	return DisconnectClient{ConnID: id}
}

// HostSink builds the frames a server sends toward the client: bytes that
// came off the dialed target socket, and the host-side disconnect.
type HostSink struct{}

func (HostSink) Data(id uuid.UUID, data []byte) Frame {
	return BytesHost{ConnID: id, Data: data}
}

func (HostSink) Disconnect(id uuid.UUID) Frame {
	return DisconnectHost{ConnID: id}
}
