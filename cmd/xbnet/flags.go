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
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/xbnet/xbnet/transport/serial"
)

// parseArgs splits args into the global flag set, the serial port, the
// subcommand name, and the subcommand's own arguments. Global flags may
// appear anywhere before the subcommand; everything after the subcommand
// is left for the subcommand's own flag set, matching the "[options]
// <port> <subcommand> [subcommand-args]" surface.
func parseArgs(args []string) (flags globalFlags, port, subcommand string, subArgs []string) {
	fs := flag.NewFlagSet("xbnet", flag.ExitOnError)
	fs.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&flags.readQual, "readqual", false, "report receive quality alongside pong replies")
	fs.BoolVar(&flags.pack, "pack", false, "coalesce queued frames to the same destination before fragmenting")
	fs.IntVar(&flags.eotWaitMS, "eotwait", 1000, "milliseconds to wait for a peer's burst to finish (ms)")
	fs.StringVar(&flags.initFile, "initfile", "", "path to a file of AT commands run after entering API mode")
	fs.IntVar(&flags.txWaitMS, "txwait", 120, "minimum milliseconds between transmitted frames")
	fs.IntVar(&flags.txSlotMS, "txslot", 0, "milliseconds this side may hold the txslot turn; 0 disables txslot")
	fs.IntVar(&flags.maxPacketSize, "maxpacketsize", 0, "override the radio-reported max packet size (10..250)")
	fs.IntVar(&flags.serialSpeed, "serial-speed", serial.DefaultBaud, "serial port baud rate")
	fs.BoolVar(&flags.disableXBeeACKs, "disable-xbee-acks", false, "disable XBee link-layer acknowledgements")
	fs.BoolVar(&flags.requestXBeeTxReports, "request-xbee-tx-reports", false, "request a TransmitStatus frame for every send")

	// The port and subcommand are positionals that may be interleaved
	// with flags (flag.Parse stops at the first non-flag, so split the
	// input into flag tokens and positional tokens ourselves).
	var flagArgs, positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if len(positional) == 2 {
			positional = append(positional, args[i:]...)
			break
		}
		if strings.HasPrefix(a, "-") {
			flagArgs = append(flagArgs, a)
			if !strings.Contains(a, "=") && flagTakesValue(fs, a) && i+1 < len(args) {
				i++
				flagArgs = append(flagArgs, args[i])
			}
			continue
		}
		positional = append(positional, a)
	}

	if err := fs.Parse(flagArgs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if len(positional) < 2 {
		usage()
		os.Exit(2)
	}
	return flags, positional[0], positional[1], positional[2:]
}

func flagTakesValue(fs *flag.FlagSet, arg string) bool {
	name := strings.TrimLeft(arg, "-")
	fl := fs.Lookup(name)
	if fl == nil {
		return false
	}
	_, isBool := fl.Value.(interface{ IsBoolFlag() bool })
	return !isBool
}

func readInitFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading init file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
