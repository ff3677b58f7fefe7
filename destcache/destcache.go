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

// Package destcache maps link-layer destinations (Ethernet MACs, IPv4/IPv6
// addresses) onto the XBee Address that last delivered them. Both cache
// types are safe for single-goroutine-owner use only — they are mutated
// exclusively inside the scheduler loop and do no internal locking, the
// same not-thread-safe-by-design posture used elsewhere in this module
// rather than defensively locking every field.
package destcache

import (
	"time"

	"github.com/xbnet/xbnet"
)

type macEntry struct {
	addr     xbnet.Address
	lastSeen time.Time
}

// MACCache learns Ethernet MAC -> XBee Address mappings for the tap
// adapter. Entries never expire: a tap bridge's MAC table is the closest
// real-world model, and those don't age out known hosts either.
type MACCache struct {
	entries map[[6]byte]macEntry
}

// NewMACCache returns an empty MACCache.
func NewMACCache() *MACCache {
	return &MACCache{entries: make(map[[6]byte]macEntry)}
}

// Learn records that mac is reachable via addr.
func (c *MACCache) Learn(mac [6]byte, addr xbnet.Address, now time.Time) {
	c.entries[mac] = macEntry{addr: addr, lastSeen: now}
}

// Lookup returns the XBee address last associated with mac.
func (c *MACCache) Lookup(mac [6]byte) (xbnet.Address, bool) {
	e, ok := c.entries[mac]
	return e.addr, ok
}

type ipEntry struct {
	addr    xbnet.Address
	learned time.Time
}

// IPCache maps IPv4 and IPv6 destinations to XBee addresses for the tun
// adapter, each entry expiring after maxAge, unlike MACCache's permanent
// entries, because IP reachability over a radio mesh is expected to shift
// as peers roam.
type IPCache struct {
	maxAge time.Duration
	v4     map[[4]byte]ipEntry
	v6     map[[16]byte]ipEntry
}

// NewIPCache returns an empty IPCache with entries expiring after maxAge.
func NewIPCache(maxAge time.Duration) *IPCache {
	return &IPCache{
		maxAge: maxAge,
		v4:     make(map[[4]byte]ipEntry),
		v6:     make(map[[16]byte]ipEntry),
	}
}

// LearnV4 records that ip is reachable via addr as of now.
func (c *IPCache) LearnV4(ip [4]byte, addr xbnet.Address, now time.Time) {
	c.v4[ip] = ipEntry{addr: addr, learned: now}
}

// LearnV6 records that ip is reachable via addr as of now.
func (c *IPCache) LearnV6(ip [16]byte, addr xbnet.Address, now time.Time) {
	c.v6[ip] = ipEntry{addr: addr, learned: now}
}

// LookupV4 returns the cached address for ip, false on miss or expiry —
// the caller (the tun adapter) falls back to broadcast in either case.
func (c *IPCache) LookupV4(ip [4]byte, now time.Time) (xbnet.Address, bool) {
	e, ok := c.v4[ip]
	if !ok || now.Sub(e.learned) > c.maxAge {
		return xbnet.Address{}, false
	}
	return e.addr, true
}

// LookupV6 returns the cached address for ip, false on miss or expiry.
func (c *IPCache) LookupV6(ip [16]byte, now time.Time) (xbnet.Address, bool) {
	e, ok := c.v6[ip]
	if !ok || now.Sub(e.learned) > c.maxAge {
		return xbnet.Address{}, false
	}
	return e.addr, true
}

// Sweep removes expired entries. LookupV4/LookupV6 treat an expired
// entry as a miss but do not delete it, so callers (the tun adapter)
// call Sweep periodically to bound map growth, rather than running a
// dedicated ticker goroutine for a cache this small.
func (c *IPCache) Sweep(now time.Time) {
	for ip, e := range c.v4 {
		if now.Sub(e.learned) > c.maxAge {
			delete(c.v4, ip)
		}
	}
	for ip, e := range c.v6 {
		if now.Sub(e.learned) > c.maxAge {
			delete(c.v6, ip)
		}
	}
}
