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

// Package fragment splits outbound user frames into radio-sized pieces
// and reassembles inbound pieces back into frames, tagging each piece
// with a small application header so the far end knows where a frame
// ends and whether the sender is yielding its transmit turn.
package fragment

import (
	"github.com/xbnet/xbnet"
)

// Header values, the low two bits of the application header byte. The
// remaining six bits are always zero on write and ignored on read.
const (
	HeaderLast        byte = 0 // final piece of a frame, no turn request
	HeaderMore        byte = 1 // more pieces to follow
	HeaderLastAndTurn byte = 2 // final piece, and the sender yields its txslot
)

// Piece is one fragment ready for transmission.
type Piece struct {
	Dest   xbnet.Address
	Header byte
	Data   []byte
}

// Split divides payload into pieces of at most maxPayload bytes, all but
// the last tagged HeaderMore and the last tagged HeaderLast. A single
// empty piece is produced for an empty payload.
func Split(dest xbnet.Address, payload []byte, maxPayload int) []Piece {
	if maxPayload <= 0 {
		maxPayload = 1
	}
	if len(payload) == 0 {
		return []Piece{{Dest: dest, Header: HeaderLast, Data: nil}}
	}

	n := (len(payload) + maxPayload - 1) / maxPayload
	pieces := make([]Piece, 0, n)
	for i := 0; i < n; i++ {
		start := i * maxPayload
		end := start + maxPayload
		if end > len(payload) {
			end = len(payload)
		}
		header := HeaderMore
		if i == n-1 {
			header = HeaderLast
		}
		pieces = append(pieces, Piece{Dest: dest, Header: header, Data: payload[start:end]})
	}
	return pieces
}

// pending is one destination's queue: whole user frames not yet split,
// plus any already-split pieces awaiting drain via NextPiece.
type pending struct {
	frames [][]byte
	pieces []Piece
}

// Fragmenter implements the --pack coalescing option: frames queued for
// the same destination are concatenated, up to maxPayload, before being
// split into pieces. Frames for different destinations are never merged.
// Fragmenter is not safe for concurrent use; it is owned by the scheduler
// loop, the single goroutine that drains it via NextPiece.
type Fragmenter struct {
	maxPayload int
	pack       bool
	queues     map[xbnet.Address]*pending
	order      []xbnet.Address
}

// NewFragmenter builds a Fragmenter. When pack is false, NextPiece splits
// each queued frame on its own, with no coalescing across calls.
func NewFragmenter(maxPayload int, pack bool) *Fragmenter {
	return &Fragmenter{
		maxPayload: maxPayload,
		pack:       pack,
		queues:     make(map[xbnet.Address]*pending),
	}
}

// EnqueueUserFrame queues payload for dest.
func (f *Fragmenter) EnqueueUserFrame(dest xbnet.Address, payload []byte) {
	q, ok := f.queues[dest]
	if !ok {
		q = &pending{}
		f.queues[dest] = q
		f.order = append(f.order, dest)
	}
	q.frames = append(q.frames, payload)
}

// NextPiece drains one destination's queue (round-robin over
// destinations with pending data), coalescing queued frames for that
// destination up to maxPayload bytes when packing is enabled, and returns
// the next piece to transmit. ok is false when nothing is queued.
func (f *Fragmenter) NextPiece() (Piece, bool) {
	for len(f.order) > 0 {
		dest := f.order[0]
		q := f.queues[dest]
		if q == nil || (len(q.frames) == 0 && len(q.pieces) == 0) {
			f.order = f.order[1:]
			delete(f.queues, dest)
			continue
		}

		if len(q.pieces) == 0 {
			q.pieces = Split(dest, f.drain(q), f.maxPayload)
		}

		piece := q.pieces[0]
		q.pieces = q.pieces[1:]

		f.order = append(f.order[1:], dest)
		return piece, true
	}
	return Piece{}, false
}

// drain removes and concatenates whole frames from q, honoring the --pack
// limit of maxPayload bytes per batch; with packing disabled it returns
// exactly one frame.
func (f *Fragmenter) drain(q *pending) []byte {
	if len(q.frames) == 0 {
		return nil
	}
	buf := append([]byte(nil), q.frames[0]...)
	q.frames = q.frames[1:]
	if !f.pack {
		return buf
	}
	for len(q.frames) > 0 && len(buf)+len(q.frames[0]) <= f.maxPayload {
		buf = append(buf, q.frames[0]...)
		q.frames = q.frames[1:]
	}
	return buf
}
