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

package xbnet

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Address is an XBee 64-bit device address. It is directly comparable and
// usable as a map key.
type Address [8]byte

// Broadcast is the distinguished XBee broadcast address
// 0x000000000000FFFF.
var Broadcast = Address{0, 0, 0, 0, 0, 0, 0xFF, 0xFF}

// String renders addr as 16 uppercase hex digits.
func (addr Address) String() string {
	return fmt.Sprintf("%X", [8]byte(addr))
}

// IsBroadcast reports whether addr is the XBee broadcast address.
func (addr Address) IsBroadcast() bool {
	return addr == Broadcast
}

// AddressFromUint64 builds an Address from its big-endian numeric value,
// as read back from ATSH/ATSL during initialization.
func AddressFromUint64(v uint64) Address {
	var addr Address
	binary.BigEndian.PutUint64(addr[:], v)
	return addr
}

// Uint64 returns addr's big-endian numeric value.
func (addr Address) Uint64() uint64 {
	return binary.BigEndian.Uint64(addr[:])
}

// ParseAddress parses a hex string (e.g. "0013A20041ABCDEF") into an
// Address, as used by the pipe/ping CLI subcommands' --dest flag.
func ParseAddress(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("parsing xbee address %q: %w", s, err)
	}
	if len(b) != 8 {
		return Address{}, fmt.Errorf("xbee address %q: want 8 bytes, got %d", s, len(b))
	}
	var addr Address
	copy(addr[:], b)
	return addr, nil
}
