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

// This file covers destination-resolution logic that doesn't require a
// live kernel tap device (water.Interface); ReadLoop/DeliverFrame
// themselves need a real interface and are exercised manually.
package tap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xbnet/xbnet"
	"github.com/xbnet/xbnet/destcache"
)

var peer = xbnet.Address{1, 2, 3, 4, 5, 6, 7, 8}

func TestResolveBroadcastMAC(t *testing.T) {
	t.Parallel()
	a := &Adapter{cache: destcache.NewMACCache()}
	dest, ok := a.resolve(broadcastMAC)
	require.True(t, ok)
	require.Equal(t, xbnet.Broadcast, dest)
}

func TestResolveMulticastMACTreatedAsBroadcast(t *testing.T) {
	t.Parallel()
	a := &Adapter{cache: destcache.NewMACCache()}
	multicast := [6]byte{0x01, 0x00, 0x5E, 0x00, 0x00, 0x01}
	dest, ok := a.resolve(multicast)
	require.True(t, ok)
	require.Equal(t, xbnet.Broadcast, dest)
}

func TestResolveLearnedUnicastMAC(t *testing.T) {
	t.Parallel()
	a := &Adapter{cache: destcache.NewMACCache()}
	mac := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	a.cache.Learn(mac, peer, time.Now())

	dest, ok := a.resolve(mac)
	require.True(t, ok)
	require.Equal(t, peer, dest)
}

func TestResolveUnknownUnicastMACDroppedByDefault(t *testing.T) {
	t.Parallel()
	a := &Adapter{cache: destcache.NewMACCache()}
	mac := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x66}
	_, ok := a.resolve(mac)
	require.False(t, ok)
}

func TestResolveUnknownUnicastMACBroadcastWhenConfigured(t *testing.T) {
	t.Parallel()
	a := &Adapter{cache: destcache.NewMACCache(), broadcastUnknown: true}
	mac := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x77}
	dest, ok := a.resolve(mac)
	require.True(t, ok)
	require.Equal(t, xbnet.Broadcast, dest)
}
