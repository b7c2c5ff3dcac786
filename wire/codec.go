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

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// connIDFrameLen is the size of the fixed part shared by the connection-id
// bearing frames: one opcode byte plus the 16 raw bytes of the uuid.
const connIDFrameLen = 1 + 16

// ErrUnknownOpcode is returned by DecodeFrame when the leading byte does not
// match any of the frame kinds in §6.1. The protocol has no resync strategy,
// so this always terminates the carrier session.
type ErrUnknownOpcode byte

func (e ErrUnknownOpcode) Error() string {
	return fmt.Sprintf("wire: unknown opcode %d", byte(e))
}

// Encode writes the bit-exact encoding of f to w. All integers are
// big-endian; connection-ids are the 16 raw bytes of their canonical form.
func Encode(w io.Writer, f Frame) error {
	var buf bytes.Buffer
	switch m := f.(type) {
	case AddPorts:
		buf.WriteByte(byte(OpAddPorts))
		writeU16(&buf, uint16(len(m.Ports)))
		for _, p := range m.Ports {
			writeU16(&buf, p)
		}
	case HostConnect:
		buf.WriteByte(byte(OpHostConnect))
		writeU16(&buf, uint16(len(m.Host)))
		writeUUID(&buf, m.ConnID)
		writeU16(&buf, m.Port)
		buf.WriteString(m.Host)
	case BytesClient:
		buf.WriteByte(byte(OpBytesClient))
		writeUUID(&buf, m.ConnID)
		writeU32(&buf, uint32(len(m.Data)))
		buf.Write(m.Data)
	case BytesHost:
		buf.WriteByte(byte(OpBytesHost))
		writeUUID(&buf, m.ConnID)
		writeU32(&buf, uint32(len(m.Data)))
		buf.Write(m.Data)
	case Connected:
		buf.WriteByte(byte(OpConnected))
		writeUUID(&buf, m.ConnID)
	case DisconnectHost:
		buf.WriteByte(byte(OpDisconnectHost))
		writeUUID(&buf, m.ConnID)
	case DisconnectClient:
		buf.WriteByte(byte(OpDisconnectClient))
		writeUUID(&buf, m.ConnID)
	case ConnectFailure:
		buf.WriteByte(byte(OpConnectFailure))
		writeUUID(&buf, m.ConnID)
	default:
		return fmt.Errorf("wire: cannot encode frame of type %T", f)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUUID(buf *bytes.Buffer, id uuid.UUID) {
	b, _ := id.MarshalBinary()
	buf.Write(b)
}

// DecodeFrame attempts to parse a single frame from the head of buf. It
// never blocks and never consumes a partial frame: when buf does not yet
// hold a complete frame it returns (nil, 0, nil), the "need more bytes"
// signal, leaving buf untouched so the caller can append more data and
// retry. Both the header length and the declared payload length are
// checked before any byte is consumed.
func DecodeFrame(buf []byte) (Frame, int, error) {
	if len(buf) == 0 {
		return nil, 0, nil
	}

	op := Opcode(buf[0])
	switch op {
	case OpAddPorts:
		if len(buf) < 3 {
			return nil, 0, nil
		}
		n := int(binary.BigEndian.Uint16(buf[1:3]))
		need := 3 + n*2
		if len(buf) < need {
			return nil, 0, nil
		}
		ports := make([]uint16, n)
		for i := 0; i < n; i++ {
			ports[i] = binary.BigEndian.Uint16(buf[3+i*2:])
		}
		return AddPorts{Ports: ports}, need, nil

	case OpHostConnect:
		const fixed = 1 + 2 + 16 + 2
		if len(buf) < fixed {
			return nil, 0, nil
		}
		hostLen := int(binary.BigEndian.Uint16(buf[1:3]))
		need := fixed + hostLen
		if len(buf) < need {
			return nil, 0, nil
		}
		id, err := uuid.FromBytes(buf[3:19])
		if err != nil {
			return nil, 0, err
		}
		port := binary.BigEndian.Uint16(buf[19:21])
		host := string(buf[21:need])
		return HostConnect{ConnID: id, Host: host, Port: port}, need, nil

	case OpBytesClient, OpBytesHost:
		const fixed = 1 + 16 + 4
		if len(buf) < fixed {
			return nil, 0, nil
		}
		id, err := uuid.FromBytes(buf[1:17])
		if err != nil {
			return nil, 0, err
		}
		l := int(binary.BigEndian.Uint32(buf[17:21]))
		need := fixed + l
		if len(buf) < need {
			return nil, 0, nil
		}
		data := append([]byte(nil), buf[fixed:need]...)
		if op == OpBytesClient {
			return BytesClient{ConnID: id, Data: data}, need, nil
		}
		return BytesHost{ConnID: id, Data: data}, need, nil

	case OpConnected, OpDisconnectHost, OpDisconnectClient, OpConnectFailure:
		if len(buf) < connIDFrameLen {
			return nil, 0, nil
		}
		id, err := uuid.FromBytes(buf[1:connIDFrameLen])
		if err != nil {
			return nil, 0, err
		}
		switch op {
		case OpConnected:
			return Connected{ConnID: id}, connIDFrameLen, nil
		case OpDisconnectHost:
			return DisconnectHost{ConnID: id}, connIDFrameLen, nil
		case OpDisconnectClient:
			return DisconnectClient{ConnID: id}, connIDFrameLen, nil
		default:
			return ConnectFailure{ConnID: id}, connIDFrameLen, nil
		}

	default:
		return nil, 0, ErrUnknownOpcode(op)
	}
}

// readChunk bounds how much a single underlying Read is asked to fill the
// decoder's accumulation buffer.
const readChunk = 4096

// Decoder turns a byte stream into a sequence of Frame values. It is the
// runtime counterpart of DecodeFrame: restartable, single reader, no frame
// is ever delivered twice.
type Decoder struct {
	r   io.Reader
	buf []byte
}

// NewDecoder wraps r. r is read incrementally as frames are requested.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next blocks until a full frame is available, the underlying reader errors,
// or it reaches EOF. A protocol error (unknown opcode, malformed uuid) is
// returned verbatim; callers must treat it as fatal to the carrier session.
func (d *Decoder) Next() (Frame, error) {
	for {
		f, n, err := DecodeFrame(d.buf)
		if err != nil {
			return nil, err
		}
		if f != nil {
			d.buf = d.buf[n:]
			return f, nil
		}

		tmp := make([]byte, readChunk)
		n, rerr := d.r.Read(tmp)
		if n > 0 {
			d.buf = append(d.buf, tmp[:n]...)
		}
		if rerr != nil {
			return nil, rerr
		}
	}
}
