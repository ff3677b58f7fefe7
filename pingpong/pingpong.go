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

// Package pingpong implements a pair of diagnostic adapters: one side
// emits a periodic counted ping, the other replies with an echo plus,
// when available, receive quality.
package pingpong

import (
	"context"
	"fmt"
	"time"

	"github.com/xbnet/xbnet"
)

// Sender is the subset of sched.Scheduler that Ping needs.
type Sender interface {
	EnqueueFrame(dest xbnet.Address, data []byte)
}

// Ping emits a "ping N" message every interval addressed at dest.
type Ping struct {
	dest     xbnet.Address
	sender   Sender
	interval time.Duration
	n        uint64
}

// NewPing builds a Ping targeting dest. interval defaults to 5 seconds.
func NewPing(sender Sender, dest xbnet.Address, interval time.Duration) *Ping {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Ping{dest: dest, sender: sender, interval: interval}
}

// Run emits pings until ctx is canceled.
func (p *Ping) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.n++
			msg := fmt.Sprintf("ping %d", p.n)
			p.sender.EnqueueFrame(p.dest, []byte(msg))
		}
	}
}

// QualityProber reports the receive quality of the last inbound frame.
// ok is false when the attached radio firmware doesn't support the
// query (ATDB, "received signal strength of last packet", is the query
// used here).
type QualityProber interface {
	Probe() (rssi int, snr int, ok bool)
}

// Pong replies to every delivered frame with an echo, optionally
// appending receive-quality fields as a plain field-by-field status
// line rather than a structured encoding.
type Pong struct {
	sender Sender
	prober QualityProber
}

// NewPong builds a Pong that replies via sender, optionally reporting
// quality via prober (nil disables the rssi/snr fields).
func NewPong(sender Sender, prober QualityProber) *Pong {
	return &Pong{sender: sender, prober: prober}
}

// DeliverFrame implements sched.Deliverer: it replies to src with an echo
// of payload.
func (pg *Pong) DeliverFrame(src xbnet.Address, payload []byte) error {
	reply := fmt.Sprintf("pong: %s", string(payload))
	if pg.prober != nil {
		if rssi, snr, ok := pg.prober.Probe(); ok {
			reply += fmt.Sprintf(" rssi=%d snr=%d", rssi, snr)
		}
	}
	pg.sender.EnqueueFrame(src, []byte(reply))
	return nil
}
