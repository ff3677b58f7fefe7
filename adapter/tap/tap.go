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

// Package tap bridges Ethernet frames between a kernel tap device and the
// XBee radio, learning destination MACs into a destcache.MACCache.
package tap

import (
	"time"

	"github.com/songgao/water"

	"github.com/xbnet/xbnet"
	"github.com/xbnet/xbnet/destcache"
)

// Sender is the subset of sched.Scheduler a producer needs.
type Sender interface {
	EnqueueFrame(dest xbnet.Address, data []byte)
}

var broadcastMAC = [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// Adapter bridges one tap interface to the radio.
type Adapter struct {
	iface            *water.Interface
	sender           Sender
	cache            *destcache.MACCache
	broadcastUnknown bool
}

// New opens (or attaches to) a tap device named ifaceName ("" lets the
// kernel assign one) and returns an Adapter ready to bridge frames.
func New(ifaceName string, sender Sender, broadcastUnknown bool) (*Adapter, error) {
	cfg := water.Config{DeviceType: water.TAP}
	if ifaceName != "" {
		cfg.Name = ifaceName
	}
	iface, err := water.New(cfg)
	if err != nil {
		return nil, err
	}
	xbnet.Debugf("tap: interface %s up", iface.Name())
	return &Adapter{
		iface:            iface,
		sender:           sender,
		cache:            destcache.NewMACCache(),
		broadcastUnknown: broadcastUnknown,
	}, nil
}

// Name returns the kernel-assigned interface name.
func (a *Adapter) Name() string { return a.iface.Name() }

// ReadLoop reads Ethernet frames from the tap device, resolves the
// destination MAC via the cache, and enqueues each frame for
// transmission. It runs until the tap device is closed.
func (a *Adapter) ReadLoop() error {
	buf := make([]byte, 65536)
	for {
		n, err := a.iface.Read(buf)
		if err != nil {
			return err
		}
		if n < 14 {
			continue // shorter than a minimal Ethernet header
		}
		frame := append([]byte(nil), buf[:n]...)

		var destMAC [6]byte
		copy(destMAC[:], frame[0:6])

		dest, ok := a.resolve(destMAC)
		if !ok {
			xbnet.Debugf("tap: dropping frame to %x: %v", destMAC, xbnet.ErrDestinationUnknown)
			continue
		}
		a.sender.EnqueueFrame(dest, frame)
	}
}

func (a *Adapter) resolve(destMAC [6]byte) (xbnet.Address, bool) {
	if destMAC == broadcastMAC || destMAC[0]&0x01 != 0 {
		return xbnet.Broadcast, true
	}
	if addr, ok := a.cache.Lookup(destMAC); ok {
		return addr, true
	}
	if a.broadcastUnknown {
		return xbnet.Broadcast, true
	}
	return xbnet.Address{}, false
}

// DeliverFrame implements sched.Deliverer: it learns the source MAC from
// the reassembled Ethernet frame and writes it to the tap device.
func (a *Adapter) DeliverFrame(src xbnet.Address, payload []byte) error {
	if len(payload) >= 12 {
		var srcMAC [6]byte
		copy(srcMAC[:], payload[6:12])
		a.cache.Learn(srcMAC, src, time.Now())
	}
	_, err := a.iface.Write(payload)
	return err
}
