// xbnet
// Copyright (c) 2026 The xbnet Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of xbnet.
//
// xbnet is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// xbnet is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with xbnet; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package serial implements xbnet.Serial over a real RS-232/USB port via
// go.bug.st/serial.
package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/xbnet/xbnet"
)

// DefaultBaud is the radio's factory baud rate; overridable
// with --serial-speed.
const DefaultBaud = 9600

// Port wraps an open serial port as an xbnet.Serial. Every I/O error is
// treated as permanent: serial-layer failure is fatal here, so
// Port does not attempt to distinguish transient from permanent causes.
type Port struct {
	port serial.Port
	name string

	mu     sync.Mutex
	closed bool
}

// Open opens port at name, 8 data bits / no parity / one stop bit, no
// hardware flow control.
func Open(name string, baud int) (*Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, xbnet.NewTransportError("open", name, err, xbnet.ErrorTypePermanent)
	}
	return &Port{port: p, name: name}, nil
}

func (p *Port) Read(buf []byte) (int, error) {
	n, err := p.port.Read(buf)
	if err != nil {
		return n, p.wrap("read", err)
	}
	if n == 0 {
		// go.bug.st/serial returns (0, nil) when the port is closed from
		// under a blocked Read; treat that the same as EOF.
		return 0, p.wrap("read", io.EOF)
	}
	return n, nil
}

func (p *Port) Write(buf []byte) (int, error) {
	n, err := p.port.Write(buf)
	if err != nil {
		return n, p.wrap("write", err)
	}
	return n, nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.port.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", p.name, err)
	}
	return nil
}

func (p *Port) wrap(op string, err error) error {
	if errors.Is(err, io.EOF) {
		return xbnet.NewTransportError(op, p.name, xbnet.ErrSerialClosed, xbnet.ErrorTypePermanent)
	}
	return xbnet.NewTransportError(op, p.name, err, xbnet.ErrorTypePermanent)
}
