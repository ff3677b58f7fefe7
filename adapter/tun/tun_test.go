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

// This file covers the address-resolution logic that doesn't require a
// live kernel tun device (water.Interface); ReadLoop/DeliverFrame
// themselves need a real interface and are exercised manually.
package tun

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xbnet/xbnet"
	"github.com/xbnet/xbnet/destcache"
)

var peer = xbnet.Address{1, 2, 3, 4, 5, 6, 7, 8}

func TestResolveV4FallsBackToBroadcastOnMiss(t *testing.T) {
	t.Parallel()
	a := &Adapter{cache: destcache.NewIPCache(time.Minute)}
	dest := a.resolveV4([4]byte{10, 0, 0, 1}, time.Now())
	require.Equal(t, xbnet.Broadcast, dest)
}

func TestResolveV4UsesLearnedAddress(t *testing.T) {
	t.Parallel()
	a := &Adapter{cache: destcache.NewIPCache(time.Minute)}
	ip := [4]byte{10, 0, 0, 1}
	now := time.Now()
	a.cache.LearnV4(ip, peer, now)

	dest := a.resolveV4(ip, now)
	require.Equal(t, peer, dest)
}

func TestResolveV4BroadcastEverythingIgnoresCache(t *testing.T) {
	t.Parallel()
	a := &Adapter{cache: destcache.NewIPCache(time.Minute), cfg: Config{BroadcastEverything: true}}
	ip := [4]byte{10, 0, 0, 1}
	now := time.Now()
	a.cache.LearnV4(ip, peer, now)

	dest := a.resolveV4(ip, now)
	require.Equal(t, xbnet.Broadcast, dest)
}

func TestResolveV6UsesLearnedAddress(t *testing.T) {
	t.Parallel()
	a := &Adapter{cache: destcache.NewIPCache(time.Minute)}
	ip := [16]byte{0x20, 0x01, 0x0d, 0xb8}
	now := time.Now()
	a.cache.LearnV6(ip, peer, now)

	dest := a.resolveV6(ip, now)
	require.Equal(t, peer, dest)
}

func TestResolveV6FallsBackToBroadcastOnMiss(t *testing.T) {
	t.Parallel()
	a := &Adapter{cache: destcache.NewIPCache(time.Minute)}
	dest := a.resolveV6([16]byte{0x20, 0x01}, time.Now())
	require.Equal(t, xbnet.Broadcast, dest)
}
