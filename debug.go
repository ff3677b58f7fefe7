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
	"log"
	"os"
	"sync/atomic"
)

var debugEnabled atomic.Bool

var debugLog = log.New(os.Stderr, "xbnet: ", log.Ltime|log.Lmicroseconds)

// SetDebugEnabled turns on or off the recovered-error/trace logging;
// recovered errors are only visible when --debug is set.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports the current debug logging state.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

func debugf(format string, args ...any) {
	if debugEnabled.Load() {
		debugLog.Printf(format, args...)
	}
}

func debugln(args ...any) {
	if debugEnabled.Load() {
		debugLog.Println(args...)
	}
}

// Debugf logs a debug-only message, gated by SetDebugEnabled, for use by
// the sched/fragment/adapter packages that cannot see this package's
// unexported debugf.
func Debugf(format string, args ...any) {
	debugf(format, args...)
}
