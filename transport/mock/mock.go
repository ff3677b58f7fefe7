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

// Package mock provides in-memory xbnet.Serial implementations for
// exercising the codec, radio initializer, fragmentation, and scheduler in
// tests without a real XBee radio attached.
package mock

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// Loopback is a Serial whose writes are immediately readable back, useful
// for codec round-trip tests that don't need two distinct endpoints.
type Loopback struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	cond   *sync.Cond
	closed bool
}

// NewLoopback returns a ready-to-use Loopback.
func NewLoopback() *Loopback {
	l := &Loopback{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *Loopback) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, errors.New("loopback: closed")
	}
	n, _ := l.buf.Write(p)
	l.cond.Broadcast()
	return n, nil
}

func (l *Loopback) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.buf.Len() == 0 && !l.closed {
		l.cond.Wait()
	}
	if l.buf.Len() == 0 && l.closed {
		return 0, io.EOF
	}
	return l.buf.Read(p)
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.cond.Broadcast()
	return nil
}

// pipeEnd is one side of a PipePair, backed by io.Pipe.
type pipeEnd struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (e *pipeEnd) Read(p []byte) (int, error)  { return e.r.Read(p) }
func (e *pipeEnd) Write(p []byte) (int, error) { return e.w.Write(p) }
func (e *pipeEnd) Close() error {
	_ = e.r.Close()
	return e.w.Close()
}

// NewPipePair returns two Serial endpoints wired together with io.Pipe,
// so writes to a become reads on b and vice versa — modeling two radios
// talking to each other for scheduler and fragmentation integration tests.
func NewPipePair() (a, b io.ReadWriteCloser) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	return &pipeEnd{r: ar, w: aw}, &pipeEnd{r: br, w: bw}
}
