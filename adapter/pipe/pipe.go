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

// Package pipe implements the byte-stream adapter: one
// fixed peer, stdin in, stdout out, no addressing logic at all.
package pipe

import (
	"bufio"
	"io"

	"github.com/xbnet/xbnet"
)

// Sender is the subset of sched.Scheduler a producer needs.
type Sender interface {
	EnqueueFrame(dest xbnet.Address, data []byte)
}

// Adapter bridges a single fixed peer address to stdin/stdout.
type Adapter struct {
	dest      xbnet.Address
	sender    Sender
	out       io.Writer
	chunkSize int
}

// New builds a pipe Adapter. chunkSize bounds how much is read from in
// per EnqueueFrame call; it should match the Fragmenter's per-piece data
// budget (the radio's negotiated max packet size minus the one-byte
// application header) so a single read produces one unfragmented piece in
// the common case.
func New(dest xbnet.Address, sender Sender, out io.Writer, chunkSize int) *Adapter {
	if chunkSize <= 0 {
		chunkSize = 200
	}
	return &Adapter{dest: dest, sender: sender, out: out, chunkSize: chunkSize}
}

// ReadLoop reads chunks from in and enqueues them for transmission until
// in returns io.EOF, at which point it returns cleanly ("EOF
// closes the producer side").
func (a *Adapter) ReadLoop(in io.Reader) error {
	r := bufio.NewReaderSize(in, a.chunkSize)
	buf := make([]byte, a.chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := append([]byte(nil), buf[:n]...)
			a.sender.EnqueueFrame(a.dest, data)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// DeliverFrame implements sched.Deliverer by writing reassembled frames
// to stdout.
func (a *Adapter) DeliverFrame(_ xbnet.Address, payload []byte) error {
	_, err := a.out.Write(payload)
	return err
}
