package wire

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	cases := []struct {
		name  string
		frame Frame
	}{
		{"AddPorts/empty", AddPorts{Ports: nil}},
		{"AddPorts/many", AddPorts{Ports: []uint16{80, 443, 8080}}},
		{"HostConnect/with host", HostConnect{ConnID: id, Host: "172.18.0.1", Port: 2375}},
		{"HostConnect/empty host", HostConnect{ConnID: id, Host: "", Port: 22}},
		{"BytesClient", BytesClient{ConnID: id, Data: []byte("hello from client")}},
		{"BytesHost", BytesHost{ConnID: id, Data: []byte("hello from host")}},
		{"BytesClient/empty", BytesClient{ConnID: id, Data: nil}},
		{"Connected", Connected{ConnID: id}},
		{"DisconnectHost", DisconnectHost{ConnID: id}},
		{"DisconnectClient", DisconnectClient{ConnID: id}},
		{"ConnectFailure", ConnectFailure{ConnID: id}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, tc.frame); err != nil {
				t.Fatalf("Encode: %v", err)
			}

			got, n, err := DecodeFrame(buf.Bytes())
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if got == nil {
				t.Fatalf("DecodeFrame returned nil, want a frame")
			}
			if n != buf.Len() {
				t.Fatalf("consumed %d bytes, want %d", n, buf.Len())
			}
			if !framesEqual(got, tc.frame) {
				t.Fatalf("round trip mismatch: got %#v, want %#v", got, tc.frame)
			}
		})
	}
}

// framesEqual compares the two byte-slice-bearing frame kinds by value since
// []byte makes them incomparable with ==; every other kind is compared with ==.
func framesEqual(a, b Frame) bool {
	switch av := a.(type) {
	case BytesClient:
		bv, ok := b.(BytesClient)
		return ok && av.ConnID == bv.ConnID && bytes.Equal(av.Data, bv.Data)
	case BytesHost:
		bv, ok := b.(BytesHost)
		return ok && av.ConnID == bv.ConnID && bytes.Equal(av.Data, bv.Data)
	case AddPorts:
		bv, ok := b.(AddPorts)
		if !ok || len(av.Ports) != len(bv.Ports) {
			return false
		}
		for i := range av.Ports {
			if av.Ports[i] != bv.Ports[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func TestDecodeFrameWantsMoreBytes(t *testing.T) {
	full := BytesClient{ConnID: uuid.New(), Data: []byte("abcdefgh")}
	var buf bytes.Buffer
	if err := Encode(&buf, full); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	complete := buf.Bytes()

	for n := 0; n < len(complete); n++ {
		f, consumed, err := DecodeFrame(complete[:n])
		if err != nil {
			t.Fatalf("DecodeFrame(%d bytes): unexpected error %v", n, err)
		}
		if f != nil {
			t.Fatalf("DecodeFrame(%d bytes): got a frame from a truncated buffer", n)
		}
		if consumed != 0 {
			t.Fatalf("DecodeFrame(%d bytes): consumed %d on a partial buffer", n, consumed)
		}
	}

	f, consumed, err := DecodeFrame(complete)
	if err != nil || f == nil || consumed != len(complete) {
		t.Fatalf("DecodeFrame(full buffer) = %v, %d, %v", f, consumed, err)
	}
}

func TestDecodeFrameUnknownOpcode(t *testing.T) {
	_, _, err := DecodeFrame([]byte{99, 1, 2, 3})
	if err == nil {
		t.Fatal("expected an error for an unknown opcode")
	}
	if _, ok := err.(ErrUnknownOpcode); !ok {
		t.Fatalf("expected ErrUnknownOpcode, got %T: %v", err, err)
	}
}

func TestDecoderNextAcrossShortReads(t *testing.T) {
	frames := []Frame{
		AddPorts{Ports: []uint16{1, 2, 3}},
		HostConnect{ConnID: uuid.New(), Host: "example.com", Port: 443},
		Connected{ConnID: uuid.New()},
	}

	var buf bytes.Buffer
	for _, f := range frames {
		if err := Encode(&buf, f); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	// Wrap the buffer in a reader that only ever returns a handful of
	// bytes per call, exercising the decoder's reassembly loop.
	r := &chunkyReader{data: buf.Bytes(), chunk: 3}
	dec := NewDecoder(r)

	for i, want := range frames {
		got, err := dec.Next()
		if err != nil {
			t.Fatalf("frame %d: Next: %v", i, err)
		}
		if got.Opcode() != want.Opcode() {
			t.Fatalf("frame %d: got opcode %d, want %d", i, got.Opcode(), want.Opcode())
		}
	}
}

type chunkyReader struct {
	data  []byte
	chunk int
}

func (r *chunkyReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, bytes.ErrTooLarge // unreachable in this test; all frames fit
	}
	n := r.chunk
	if n > len(p) {
		n = len(p)
	}
	if n > len(r.data) {
		n = len(r.data)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}
