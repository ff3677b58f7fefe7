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

// Option is a functional option for InitConfig, applied before a Radio is
// constructed via Init.
type Option func(*InitConfig)

// WithInitScript overrides DefaultInitScript().
func WithInitScript(lines []string) Option {
	return func(c *InitConfig) { c.InitScript = lines }
}

// WithDisableXBeeACKs sets the options bit that suppresses XBee-level
// link-layer acknowledgements on outbound TransmitRequests.
func WithDisableXBeeACKs(disable bool) Option {
	return func(c *InitConfig) { c.DisableXBeeACKs = disable }
}

// WithTxReports enables TransmitStatus frames for outbound transmissions.
func WithTxReports(enable bool) Option {
	return func(c *InitConfig) { c.RequestTxReports = enable }
}

// WithMaxPacketSize overrides the ATNP-derived max packet size.
func WithMaxPacketSize(n int) Option {
	return func(c *InitConfig) { c.MaxPacketSize = n }
}

// NewInitConfig builds an InitConfig from the given options.
func NewInitConfig(opts ...Option) InitConfig {
	var cfg InitConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
