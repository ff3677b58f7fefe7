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

/*
Package xbnet bridges byte streams, Ethernet frames, and IP packets over a
half-duplex XBee radio in API mode.

A single serial port carries everything: the radio's own AT command/response
traffic, and user data fragmented into radio-sized pieces and reassembled on
the far end. Because the link is half-duplex, a cooperative scheduler (see
package sched) paces transmissions and negotiates a "txslot" turn with the
peer so neither side talks over the other indefinitely.

Basic usage:

	port, err := serial.Open("/dev/ttyUSB0", serial.DefaultBaud)
	if err != nil {
	    log.Fatal(err)
	}
	defer port.Close()

	radio, err := xbnet.Init(port, xbnet.NewInitConfig(
	    xbnet.WithInitScript([]string{"AP1", "ID2015"}),
	))
	if err != nil {
	    log.Fatal(err)
	}

Packages:

  - internal/frame: wire-level API frame constants and checksum helpers.
  - internal/retry: the generic retry helper used only by the radio
    initializer's transparent-mode handshake.
  - transport/serial: a real go.bug.st/serial-backed Serial.
  - transport/mock: in-memory Serial pairs for tests.
  - fragment: splitting and reassembly of user frames.
  - sched: the half-duplex transmit scheduler.
  - destcache: MAC and IP destination caches for the tap/tun adapters.
  - adapter/pipe, adapter/tap, adapter/tun: the three packet-mode adapters.
  - pingpong: the ping/pong diagnostic pair.

Concurrency:

A Radio and its Codec are safe for one reader and one writer goroutine to
use concurrently with each other, but not for concurrent readers or
concurrent writers among themselves. The Scheduler type in package sched
owns all scheduling state itself and must be driven from a single
goroutine; EnqueueFrame is the only method intended to be called from other
goroutines.
*/
package xbnet
