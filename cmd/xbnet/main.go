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
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xbnet/xbnet"
	"github.com/xbnet/xbnet/fragment"
	"github.com/xbnet/xbnet/sched"
	"github.com/xbnet/xbnet/transport/serial"
)

type globalFlags struct {
	debug                bool
	readQual             bool
	pack                 bool
	eotWaitMS            int
	initFile             string
	txWaitMS             int
	txSlotMS             int
	maxPacketSize        int
	serialSpeed          int
	disableXBeeACKs      bool
	requestXBeeTxReports bool
}

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}

	flags, port, subcommand, subArgs := parseArgs(os.Args[1:])
	if flags.debug {
		xbnet.SetDebugEnabled(true)
	}

	if err := run(port, subcommand, subArgs, flags); err != nil {
		fmt.Fprintln(os.Stderr, "xbnet:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: xbnet [options] <port> <pipe|ping|pong|tun|tap> [subcommand-args]")
}

func run(portName, subcommand string, subArgs []string, flags globalFlags) error {
	port, err := serial.Open(portName, flags.serialSpeed)
	if err != nil {
		return fmt.Errorf("opening %s: %w", portName, err)
	}
	defer func() { _ = port.Close() }()

	initOpts := []xbnet.Option{
		xbnet.WithDisableXBeeACKs(flags.disableXBeeACKs),
		xbnet.WithTxReports(flags.requestXBeeTxReports),
	}
	if flags.maxPacketSize > 0 {
		initOpts = append(initOpts, xbnet.WithMaxPacketSize(flags.maxPacketSize))
	}
	if flags.initFile != "" {
		lines, err := readInitFile(flags.initFile)
		if err != nil {
			return err
		}
		initOpts = append(initOpts, xbnet.WithInitScript(lines))
	}

	radio, err := xbnet.Init(port, xbnet.NewInitConfig(initOpts...))
	if err != nil {
		return fmt.Errorf("initializing radio: %w", err)
	}
	fmt.Printf("xbnet: local address %s, max packet size %d\n", radio.LocalAddr, radio.MaxPacketSize)

	frag := fragment.NewFragmenter(radio.MaxPacketSize-1, flags.pack)
	reasm := fragment.NewReassembler()

	schedCfg := sched.Config{
		TxWait:  time.Duration(flags.txWaitMS) * time.Millisecond,
		EotWait: time.Duration(flags.eotWaitMS) * time.Millisecond,
		TxSlot:  time.Duration(flags.txSlotMS) * time.Millisecond,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch subcommand {
	case "pipe":
		return runPipe(ctx, radio, frag, reasm, flags, schedCfg, subArgs)
	case "ping":
		return runPing(ctx, radio, frag, reasm, flags, schedCfg, subArgs)
	case "pong":
		return runPong(ctx, radio, frag, reasm, flags, schedCfg)
	case "tun":
		return runTun(ctx, radio, frag, reasm, flags, schedCfg, subArgs)
	case "tap":
		return runTap(ctx, radio, frag, reasm, flags, schedCfg, subArgs)
	default:
		usage()
		return fmt.Errorf("unknown subcommand %q", subcommand)
	}
}

func newScheduler(radio *xbnet.Radio, frag *fragment.Fragmenter, reasm *fragment.Reassembler, flags globalFlags, cfg sched.Config) *sched.Scheduler {
	s := sched.New(radio.Codec, frag, reasm, nil, cfg, 64)
	s.SetTxReportsEnabled(radio.RequestTxReports())
	s.SetDisableXBeeACKs(flags.disableXBeeACKs)
	return s
}
