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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/xbnet/xbnet"
	"github.com/xbnet/xbnet/adapter/pipe"
	"github.com/xbnet/xbnet/adapter/tap"
	"github.com/xbnet/xbnet/adapter/tun"
	"github.com/xbnet/xbnet/fragment"
	"github.com/xbnet/xbnet/pingpong"
	"github.com/xbnet/xbnet/sched"
)

func runPipe(ctx context.Context, radio *xbnet.Radio, frag *fragment.Fragmenter, reasm *fragment.Reassembler, flags globalFlags, cfg sched.Config, args []string) error {
	fs := flag.NewFlagSet("pipe", flag.ExitOnError)
	dest := fs.String("dest", "", "destination xbee address (16 hex digits)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	destAddr, err := parseDest(*dest)
	if err != nil {
		return err
	}

	scheduler := newScheduler(radio, frag, reasm, flags, cfg)
	adapter := pipe.New(destAddr, scheduler, os.Stdout, radio.MaxPacketSize-1)
	scheduler.SetSink(adapter)

	go func() {
		if err := adapter.ReadLoop(os.Stdin); err != nil {
			fmt.Fprintln(os.Stderr, "xbnet: pipe stdin:", err)
		}
	}()

	return scheduler.Run(ctx)
}

func runPing(ctx context.Context, radio *xbnet.Radio, frag *fragment.Fragmenter, reasm *fragment.Reassembler, flags globalFlags, cfg sched.Config, args []string) error {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	dest := fs.String("dest", "", "destination xbee address (16 hex digits)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	destAddr, err := parseDest(*dest)
	if err != nil {
		return err
	}

	scheduler := newScheduler(radio, frag, reasm, flags, cfg)
	scheduler.SetSink(loggingDeliverer{})
	pinger := pingpong.NewPing(scheduler, destAddr, 5*time.Second)
	go pinger.Run(ctx)

	return scheduler.Run(ctx)
}

func runPong(ctx context.Context, radio *xbnet.Radio, frag *fragment.Fragmenter, reasm *fragment.Reassembler, flags globalFlags, cfg sched.Config) error {
	scheduler := newScheduler(radio, frag, reasm, flags, cfg)
	var prober pingpong.QualityProber
	if flags.readQual {
		prober = radio
	}
	pong := pingpong.NewPong(scheduler, prober)
	scheduler.SetSink(pong)

	return scheduler.Run(ctx)
}

func runTun(ctx context.Context, radio *xbnet.Radio, frag *fragment.Fragmenter, reasm *fragment.Reassembler, flags globalFlags, cfg sched.Config, args []string) error {
	fs := flag.NewFlagSet("tun", flag.ExitOnError)
	ifaceName := fs.String("iface-name", "", "kernel interface name (empty lets the kernel choose)")
	broadcastEverything := fs.Bool("broadcast-everything", false, "always broadcast outbound packets")
	disableIPv4 := fs.Bool("disable-ipv4", false, "drop IPv4 traffic")
	disableIPv6 := fs.Bool("disable-ipv6", false, "drop IPv6 traffic")
	maxIPCacheSeconds := fs.Int("max-ip-cache", 300, "seconds before a learned destination IP expires")
	if err := fs.Parse(args); err != nil {
		return err
	}

	scheduler := newScheduler(radio, frag, reasm, flags, cfg)
	adapter, err := tun.New(scheduler, tun.Config{
		IfaceName:           *ifaceName,
		MaxIPCache:          time.Duration(*maxIPCacheSeconds) * time.Second,
		DisableIPv4:         *disableIPv4,
		DisableIPv6:         *disableIPv6,
		BroadcastEverything: *broadcastEverything,
	})
	if err != nil {
		return fmt.Errorf("opening tun device: %w", err)
	}
	fmt.Printf("xbnet: tun interface %s\n", adapter.Name())
	scheduler.SetSink(adapter)

	go func() {
		if err := adapter.ReadLoop(); err != nil {
			fmt.Fprintln(os.Stderr, "xbnet: tun read loop:", err)
		}
	}()

	return scheduler.Run(ctx)
}

func runTap(ctx context.Context, radio *xbnet.Radio, frag *fragment.Fragmenter, reasm *fragment.Reassembler, flags globalFlags, cfg sched.Config, args []string) error {
	fs := flag.NewFlagSet("tap", flag.ExitOnError)
	ifaceName := fs.String("iface-name", "", "kernel interface name (empty lets the kernel choose)")
	broadcastUnknown := fs.Bool("broadcast-unknown", false, "broadcast frames whose destination MAC is not cached")
	if err := fs.Parse(args); err != nil {
		return err
	}

	scheduler := newScheduler(radio, frag, reasm, flags, cfg)
	adapter, err := tap.New(*ifaceName, scheduler, *broadcastUnknown)
	if err != nil {
		return fmt.Errorf("opening tap device: %w", err)
	}
	fmt.Printf("xbnet: tap interface %s\n", adapter.Name())
	scheduler.SetSink(adapter)

	go func() {
		if err := adapter.ReadLoop(); err != nil {
			fmt.Fprintln(os.Stderr, "xbnet: tap read loop:", err)
		}
	}()

	return scheduler.Run(ctx)
}

func parseDest(s string) (xbnet.Address, error) {
	if s == "" {
		return xbnet.Address{}, fmt.Errorf("--dest is required")
	}
	return xbnet.ParseAddress(s)
}

// loggingDeliverer prints delivered frames to stdout, used by the ping
// subcommand, which doesn't otherwise consume replies itself.
type loggingDeliverer struct{}

func (loggingDeliverer) DeliverFrame(src xbnet.Address, payload []byte) error {
	fmt.Printf("xbnet: reply from %s: %s\n", src, string(payload))
	return nil
}
