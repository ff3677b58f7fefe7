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

package fragment

import (
	"time"

	"github.com/xbnet/xbnet"
)

// reassembly tracks one peer's in-flight frame.
type reassembly struct {
	buf      []byte
	deadline time.Time
}

// Reassembler reassembles fragments keyed by sender address back into
// whole frames. It is not safe for concurrent use; the scheduler owns it.
type Reassembler struct {
	inFlight map[xbnet.Address]*reassembly
}

// NewReassembler returns an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{inFlight: make(map[xbnet.Address]*reassembly)}
}

// Feed consumes one received piece. frame is non-nil only when header
// indicated this was the final piece, at which point the accumulated
// buffer is returned and the peer's in-flight state is cleared.
// turnRequested mirrors header == HeaderLastAndTurn; the caller (the
// scheduler) is responsible for acting on it, since Feed holds no
// scheduling state of its own.
func (ra *Reassembler) Feed(src xbnet.Address, header byte, data []byte, eotwait time.Duration) (frameOut []byte, delivered, turnRequested bool) {
	switch header & 3 {
	case HeaderMore:
		ra.append(src, data, eotwait)
		return nil, false, false
	case HeaderLast:
		buf := ra.finish(src, data)
		return buf, true, false
	case HeaderLastAndTurn:
		buf := ra.finish(src, data)
		return buf, true, true
	default:
		// header&3 == 3 is undefined; treat it as HeaderMore rather than
		// drop the data.
		ra.append(src, data, eotwait)
		return nil, false, false
	}
}

func (ra *Reassembler) append(src xbnet.Address, data []byte, eotwait time.Duration) {
	r, ok := ra.inFlight[src]
	if !ok {
		r = &reassembly{}
		ra.inFlight[src] = r
	}
	r.buf = append(r.buf, data...)
	r.deadline = time.Now().Add(eotwait)
}

func (ra *Reassembler) finish(src xbnet.Address, data []byte) []byte {
	r, ok := ra.inFlight[src]
	if !ok {
		buf := append([]byte(nil), data...)
		delete(ra.inFlight, src)
		return buf
	}
	buf := append(r.buf, data...)
	delete(ra.inFlight, src)
	return buf
}

// ExpireOlderThan drops any in-flight buffer whose last-fragment deadline
// has passed, implementing the eotwait reassembly timeout. It returns the
// addresses dropped, for logging.
func (ra *Reassembler) ExpireOlderThan(now time.Time) []xbnet.Address {
	var dropped []xbnet.Address
	for addr, r := range ra.inFlight {
		if now.After(r.deadline) {
			dropped = append(dropped, addr)
			delete(ra.inFlight, addr)
		}
	}
	return dropped
}

// HasInFlight reports whether any peer currently has a partial frame
// buffered, used by the scheduler's Eotwait-yield pacing rule.
func (ra *Reassembler) HasInFlight() bool {
	return len(ra.inFlight) > 0
}
