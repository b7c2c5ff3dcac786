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

// Package addr parses the --connection command-line flag's compact
// port-mapping syntax into structured records.
package addr

import (
	"fmt"
	"strconv"
	"strings"
)

// PortConnection is one entry from a --connection flag: the local port a
// client listener binds to, the optional host the server should dial
// instead of its own default, and the destination port.
type PortConnection struct {
	ClientPort *uint16
	Host       *string
	Port       uint16
}

// ListenPort returns the port a client listener should bind, applying the
// "defaults to Port" rule when ClientPort was not given.
func (p PortConnection) ListenPort() uint16 {
	if p.ClientPort != nil {
		return *p.ClientPort
	}
	return p.Port
}

// String renders p back in the compact syntax ParsePortConnection accepts,
// choosing the shortest form that round-trips.
func (p PortConnection) String() string {
	switch {
	case p.ClientPort == nil && p.Host == nil:
		return strconv.Itoa(int(p.Port))
	case p.Host == nil:
		return fmt.Sprintf("%d:%d", *p.ClientPort, p.Port)
	case p.ClientPort == nil:
		return fmt.Sprintf("%s:%d", *p.Host, p.Port)
	default:
		return fmt.Sprintf("%d:%s:%d", *p.ClientPort, *p.Host, p.Port)
	}
}

// ParsePortConnection parses one of the three shapes described by
// "[client_port:][host:]host_port":
//
//	port        -> {client_port: nil, host: nil, port}
//	a:b         -> if a is a u16, {client_port: a, host: nil, port: b}
//	               else           {client_port: nil, host: a, port: b}
//	a:b:c       -> {client_port: a, host: b, port: c}
func ParsePortConnection(s string) (PortConnection, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		port, err := parsePort(parts[0])
		if err != nil {
			return PortConnection{}, fmt.Errorf("addr: %q: %w", s, err)
		}
		return PortConnection{Port: port}, nil

	case 2:
		port, err := parsePort(parts[1])
		if err != nil {
			return PortConnection{}, fmt.Errorf("addr: %q: %w", s, err)
		}
		if cp, err := parsePort(parts[0]); err == nil {
			return PortConnection{ClientPort: &cp, Port: port}, nil
		}
		host := parts[0]
		return PortConnection{Host: &host, Port: port}, nil

	case 3:
		cp, err := parsePort(parts[0])
		if err != nil {
			return PortConnection{}, fmt.Errorf("addr: %q: client_port: %w", s, err)
		}
		port, err := parsePort(parts[2])
		if err != nil {
			return PortConnection{}, fmt.Errorf("addr: %q: port: %w", s, err)
		}
		host := parts[1]
		return PortConnection{ClientPort: &cp, Host: &host, Port: port}, nil

	default:
		return PortConnection{}, fmt.Errorf("addr: %q: too many ':'-separated fields", s)
	}
}

func parsePort(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	return uint16(v), nil
}
