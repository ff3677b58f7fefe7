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

// Package tun bridges IPv4/IPv6 packets between a kernel tun device and
// the XBee radio, learning destination IPs into a destcache.IPCache.
package tun

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

// Config controls per-family behavior for the tun adapter.
type Config struct {
	IfaceName           string
	MaxIPCache          time.Duration
	DisableIPv4         bool
	DisableIPv6         bool
	BroadcastEverything bool
}

// Adapter bridges one tun interface to the radio.
type Adapter struct {
	iface  *water.Interface
	sender Sender
	cache  *destcache.IPCache
	cfg    Config

	packetsSeen uint64
}

// sweepInterval bounds how often ReadLoop opportunistically evicts
// expired cache entries; Lookup itself never deletes, so without this
// the cache would grow forever as peers roam through addresses.
const sweepInterval = 256

// New opens (or attaches to) a tun device per cfg and returns an Adapter.
func New(sender Sender, cfg Config) (*Adapter, error) {
	if cfg.MaxIPCache <= 0 {
		cfg.MaxIPCache = 300 * time.Second
	}
	wcfg := water.Config{DeviceType: water.TUN}
	if cfg.IfaceName != "" {
		wcfg.Name = cfg.IfaceName
	}
	iface, err := water.New(wcfg)
	if err != nil {
		return nil, err
	}
	xbnet.Debugf("tun: interface %s up", iface.Name())
	return &Adapter{
		iface:  iface,
		sender: sender,
		cache:  destcache.NewIPCache(cfg.MaxIPCache),
		cfg:    cfg,
	}, nil
}

// Name returns the kernel-assigned interface name.
func (a *Adapter) Name() string { return a.iface.Name() }

// ReadLoop reads IP packets from the tun device, resolves the destination
// via the cache (or broadcasts), and enqueues each packet for
// transmission.
func (a *Adapter) ReadLoop() error {
	buf := make([]byte, 65536)
	for {
		n, err := a.iface.Read(buf)
		if err != nil {
			return err
		}
		if n < 1 {
			continue
		}
		packet := append([]byte(nil), buf[:n]...)
		version := packet[0] >> 4

		now := time.Now()
		a.packetsSeen++
		if a.packetsSeen%sweepInterval == 0 {
			a.cache.Sweep(now)
		}

		var dest xbnet.Address
		switch version {
		case 4:
			if a.cfg.DisableIPv4 || len(packet) < 20 {
				continue
			}
			var dst [4]byte
			copy(dst[:], packet[16:20])
			dest = a.resolveV4(dst, now)
		case 6:
			if a.cfg.DisableIPv6 || len(packet) < 40 {
				continue
			}
			var dst [16]byte
			copy(dst[:], packet[24:40])
			dest = a.resolveV6(dst, now)
		default:
			continue
		}

		a.sender.EnqueueFrame(dest, packet)
	}
}

func (a *Adapter) resolveV4(dst [4]byte, now time.Time) xbnet.Address {
	if a.cfg.BroadcastEverything {
		return xbnet.Broadcast
	}
	if addr, ok := a.cache.LookupV4(dst, now); ok {
		return addr
	}
	return xbnet.Broadcast
}

func (a *Adapter) resolveV6(dst [16]byte, now time.Time) xbnet.Address {
	if a.cfg.BroadcastEverything {
		return xbnet.Broadcast
	}
	if addr, ok := a.cache.LookupV6(dst, now); ok {
		return addr
	}
	return xbnet.Broadcast
}

// DeliverFrame implements sched.Deliverer: it learns the source IP from
// the reassembled packet (keyed to the XBee source address that actually
// delivered it) and writes the packet to the tun device.
func (a *Adapter) DeliverFrame(src xbnet.Address, payload []byte) error {
	if len(payload) < 1 {
		return nil
	}
	now := time.Now()
	switch payload[0] >> 4 {
	case 4:
		if a.cfg.DisableIPv4 || len(payload) < 20 {
			return nil
		}
		var srcIP [4]byte
		copy(srcIP[:], payload[12:16])
		a.cache.LearnV4(srcIP, src, now)
	case 6:
		if a.cfg.DisableIPv6 || len(payload) < 40 {
			return nil
		}
		var srcIP [16]byte
		copy(srcIP[:], payload[8:24])
		a.cache.LearnV6(srcIP, src, now)
	default:
		return nil
	}
	_, err := a.iface.Write(payload)
	return err
}
