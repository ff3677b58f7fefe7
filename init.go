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
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/xbnet/xbnet/internal/retry"
)

// guardInterval is the silent period xbee firmware requires before and
// after the "+++" escape sequence, per the AT command-mode guard time
// convention (default 1s on the radio; we sleep 2s to be conservative
// against a slow USB-serial adapter).
const guardInterval = 2 * time.Second

// DefaultMaxPacketSize is used when an ATNP read fails or is skipped and
// no --maxpacketsize flag was given.
const DefaultMaxPacketSize = 200

// DefaultInitScript returns the minimal baseline AT command set run after
// API mode is entered. Callers append PAN id / channel / network commands
// as required by their deployment; xbnet ships no default PAN because two
// radios with the factory PAN id would talk to every other unconfigured
// radio in range.
func DefaultInitScript() []string {
	return []string{"AP1"}
}

// Radio owns an initialized Codec plus the identity and limits learned
// from the attached XBee during initialization.
type Radio struct {
	Codec *Codec

	LocalAddr     Address
	MaxPacketSize int

	requestTxReports bool
}

// InitConfig configures Init.
type InitConfig struct {
	InitScript       []string
	DisableXBeeACKs  bool
	RequestTxReports bool
	MaxPacketSize    int // 0 means "ask the radio via ATNP"
}

// Init performs the full radio bring-up sequence against port and
// returns a ready-to-use Radio. Any AT command failure is fatal and
// returned wrapped in ErrInitFailed; nothing here is retried except the
// bounded wait for the transparent-mode "OK" in enterCommandMode.
func Init(port Serial, cfg InitConfig) (*Radio, error) {
	if cfg.MaxPacketSize != 0 && (cfg.MaxPacketSize < 10 || cfg.MaxPacketSize > 250) {
		return nil, fmt.Errorf("%w: max packet size %d outside 10..250", ErrConfigInvalid, cfg.MaxPacketSize)
	}

	r := bufio.NewReader(port)

	alreadyAPI, err := enterCommandMode(port, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}
	if !alreadyAPI {
		if err := textCommandOK(port, r, "ATAP 1"); err != nil {
			return nil, err
		}
		if err := textCommandOK(port, r, "ATWR"); err != nil {
			return nil, err
		}
		if err := textCommandOK(port, r, "ATCN"); err != nil {
			return nil, err
		}
	}

	codec := NewCodec(port)
	radio := &Radio{Codec: codec, requestTxReports: cfg.RequestTxReports}

	script := cfg.InitScript
	if script == nil {
		script = DefaultInitScript()
	}
	if err := radio.runInitScript(script); err != nil {
		return nil, err
	}

	addr, err := radio.readLocalAddress()
	if err != nil {
		return nil, err
	}
	radio.LocalAddr = addr

	maxSize := cfg.MaxPacketSize
	if maxSize == 0 {
		maxSize, err = radio.readMaxPacketSize()
		if err != nil {
			debugf("init: ATNP failed, defaulting max packet size to %d: %v", DefaultMaxPacketSize, err)
			maxSize = DefaultMaxPacketSize
		}
	}
	radio.MaxPacketSize = maxSize

	radio.configureTxReports(cfg.RequestTxReports)

	return radio, nil
}

// enterCommandMode sends the "+++" escape sequence surrounded by guard
// silence and waits (bounded) for a transparent-mode "OK\r". It reports
// alreadyAPI=true if no OK arrives before the bound, on the assumption the
// radio is already configured for API mode.
func enterCommandMode(port Serial, r *bufio.Reader) (alreadyAPI bool, err error) {
	time.Sleep(guardInterval)
	debugln("init: sending +++")
	if _, err := port.Write([]byte("+++")); err != nil {
		return false, fmt.Errorf("writing escape sequence: %w", err)
	}
	time.Sleep(guardInterval)

	_, err = retry.Timeout(3*time.Second, 100*time.Millisecond, func() (struct{}, bool, error) {
		line, rerr := readTransparentLine(r)
		if rerr != nil {
			return struct{}{}, false, rerr
		}
		if strings.HasSuffix(line, "OK") {
			return struct{}{}, false, nil
		}
		return struct{}{}, true, nil
	})
	if err != nil {
		debugln("init: no transparent-mode OK seen, assuming radio already in API mode")
		return true, nil
	}
	return false, nil
}

func readTransparentLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\r')
	if err != nil {
		return "", NewTransportError("read", "", err, ErrorTypePermanent)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func textCommandOK(port Serial, r *bufio.Reader, cmd string) error {
	if _, err := port.Write([]byte(cmd + "\r")); err != nil {
		return fmt.Errorf("%w: writing %q: %w", ErrInitFailed, cmd, err)
	}
	line, err := readTransparentLine(r)
	if err != nil {
		return fmt.Errorf("%w: reading response to %q: %w", ErrInitFailed, cmd, err)
	}
	if line != "OK" {
		return fmt.Errorf("%w: %q got %q, want OK", ErrInitFailed, cmd, line)
	}
	return nil
}

// runInitScript sends each line as a framed AT command, fataling on the
// first non-OK status.
func (r *Radio) runInitScript(lines []string) error {
	for _, line := range lines {
		if len(line) < 2 {
			continue
		}
		name := line[:2]
		param := []byte(line[2:])
		if err := r.runATCommand(name, param); err != nil {
			return fmt.Errorf("%w: init script %q: %w", ErrInitFailed, line, err)
		}
	}
	return nil
}

// runATCommand sends a single framed AT command and waits for its
// matching response, failing on a nonzero status byte.
func (r *Radio) runATCommand(name string, param []byte) error {
	id := r.Codec.AllocFrameID()
	if err := r.Codec.WriteFrame(ATCommand{FrameID: id, Name: name, Param: param}); err != nil {
		return err
	}
	for {
		fr, err := r.Codec.ReadFrame()
		if err != nil {
			return err
		}
		resp, ok := fr.(ATResponse)
		if !ok || resp.FrameID != id {
			continue
		}
		if resp.Status != 0 {
			return fmt.Errorf("AT%s: status %d", name, resp.Status)
		}
		return nil
	}
}

// queryATCommand runs an AT command and returns its response value.
func (r *Radio) queryATCommand(name string) ([]byte, error) {
	id := r.Codec.AllocFrameID()
	if err := r.Codec.WriteFrame(ATCommand{FrameID: id, Name: name}); err != nil {
		return nil, err
	}
	for {
		fr, err := r.Codec.ReadFrame()
		if err != nil {
			return nil, err
		}
		resp, ok := fr.(ATResponse)
		if !ok || resp.FrameID != id {
			continue
		}
		if resp.Status != 0 {
			return nil, fmt.Errorf("AT%s: status %d", name, resp.Status)
		}
		return resp.Value, nil
	}
}

// readLocalAddress issues framed ATSH/ATSL and combines the two 32-bit
// halves into the radio's 64-bit address.
func (r *Radio) readLocalAddress() (Address, error) {
	high, err := r.queryATCommand("SH")
	if err != nil {
		return Address{}, fmt.Errorf("%w: ATSH: %w", ErrInitFailed, err)
	}
	low, err := r.queryATCommand("SL")
	if err != nil {
		return Address{}, fmt.Errorf("%w: ATSL: %w", ErrInitFailed, err)
	}
	return combineAddress(high, low), nil
}

func combineAddress(high, low []byte) Address {
	var addr Address
	copy(addr[4-len(high):4], high)
	copy(addr[8-len(low):8], low)
	return addr
}

// readMaxPacketSize issues a framed ATNP, parsing the response as a
// big-endian 16-bit byte count, the documented NP behavior for this
// radio firmware family.
func (r *Radio) readMaxPacketSize() (int, error) {
	val, err := r.queryATCommand("NP")
	if err != nil {
		return 0, err
	}
	var n int
	for _, b := range val {
		n = n<<8 | int(b)
	}
	if n <= 0 {
		return 0, fmt.Errorf("ATNP returned %v", val)
	}
	return n, nil
}

// configureTxReports records whether outbound TransmitRequests should
// request a TransmitStatus frame. When disabled (the default), outbound
// frames use frame id 0 so the firmware never generates a status frame
// at all.
func (r *Radio) configureTxReports(requestReports bool) {
	r.requestTxReports = requestReports
}

// RequestTxReports reports the configured tx-report behavior, used by
// callers building TransmitRequest frame ids.
func (r *Radio) RequestTxReports() bool { return r.requestTxReports }

// Probe implements pingpong.QualityProber by querying ATDB, the XBee
// command for "received signal strength of the last packet" (no SNR
// equivalent exists on this firmware family, so snr is always 0; ok is
// false only when the ATDB query itself fails, e.g. unsupported
// firmware).
func (r *Radio) Probe() (rssi int, snr int, ok bool) {
	val, err := r.queryATCommand("DB")
	if err != nil || len(val) == 0 {
		return 0, 0, false
	}
	return -int(val[0]), 0, true
}
