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
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/xbnet/xbnet/internal/frame"
)

// Frame is the tagged union of the five XBee API frame kinds this package
// speaks. It deliberately has no methods beyond the marker: callers type
// switch on the concrete type, matching the small-interface shape used for
// Serial here and for the adapters' Sender/sched.Deliverer.
type Frame interface {
	isFrame()
}

// ATCommand requests the radio run a local AT command (API id 0x08).
type ATCommand struct {
	FrameID byte
	Name    string // two ASCII letters, e.g. "AP", "SH"
	Param   []byte
}

func (ATCommand) isFrame() {}

// ATResponse is the radio's reply to an ATCommand (API id 0x88).
type ATResponse struct {
	FrameID byte
	Name    string
	Status  byte // 0 = OK
	Value   []byte
}

func (ATResponse) isFrame() {}

// TransmitRequest carries a fragment (or whole short frame) to dest
// (API id 0x10).
type TransmitRequest struct {
	FrameID   byte
	Dest      Address
	Options   byte
	AppHeader byte
	Data      []byte
}

func (TransmitRequest) isFrame() {}

// TransmitStatus reports delivery status of a previously sent
// TransmitRequest (API id 0x8B). Only consulted when tx reports are
// enabled (init.go configureTxReports).
type TransmitStatus struct {
	FrameID    byte
	DeliveryOK bool
	RetryCount byte
}

func (TransmitStatus) isFrame() {}

// ReceivePacket is an inbound payload from a peer (API id 0x90).
type ReceivePacket struct {
	Source    Address
	Options   byte
	AppHeader byte
	Data      []byte
}

func (ReceivePacket) isFrame() {}

// destUnknown16 is the "no 16-bit address known" sentinel XBee firmware
// expects in a TransmitRequest when addressing by 64-bit address only.
const destUnknown16 = uint16(frame.DestUnknown16)

// Codec frames and deframes Frame values over a Serial connection,
// implementing the 0x7E-delimited XBee API-mode frame envelope.
// A Codec is not safe for concurrent use from more than one reader and one
// writer goroutine at a time (WriteFrame/ReadFrame each take their own
// lock, but the two may run concurrently with each other).
type Codec struct {
	port Serial
	r    *bufio.Reader

	writeMu sync.Mutex
	readMu  sync.Mutex

	nextFrameID uint32 // accessed via atomic, wraps 1..255 (0 reserved below)
}

// NewCodec wraps port in a Codec ready to exchange Frame values.
func NewCodec(port Serial) *Codec {
	return &Codec{port: port, r: bufio.NewReaderSize(port, 512)}
}

// AllocFrameID returns the next non-zero frame id, wrapping 1..255. Frame
// id 0 is reserved for "no response wanted" (used for suppressed delivery
// reports) and is never returned here; callers that want id 0 set it
// explicitly instead of calling AllocFrameID.
func (c *Codec) AllocFrameID() byte {
	for {
		v := atomic.AddUint32(&c.nextFrameID, 1)
		id := byte(v)
		if id != 0 {
			return id
		}
	}
}

// WriteFrame marshals fr to its API payload and writes the framed,
// checksummed envelope to the underlying Serial port.
func (c *Codec) WriteFrame(fr Frame) error {
	payload, err := marshalFrame(fr)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if len(payload) > 0xFFFF {
		return NewDataTooLargeError("WriteFrame", "")
	}

	buf := make([]byte, 0, len(payload)+4)
	buf = append(buf, frame.StartDelimiter)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, frame.CalculateChecksum(payload))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.port.Write(buf); err != nil {
		return NewTransportError("write", "", err, ErrorTypePermanent)
	}
	return nil
}

// ReadFrame blocks until a complete, checksum-valid frame is read, or a
// fatal serial error occurs. Checksum mismatches and unrecognized API ids
// are logged via debugln and skipped — ReadFrame resynchronizes on the
// next 0x7E rather than returning an error for those cases.
func (c *Codec) ReadFrame() (Frame, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for {
		if err := c.syncToDelimiter(); err != nil {
			return nil, err
		}

		lenBuf := make([]byte, 2)
		if _, err := readFull(c.r, lenBuf); err != nil {
			return nil, NewTransportError("read", "", err, ErrorTypePermanent)
		}
		n := binary.BigEndian.Uint16(lenBuf)

		payload := make([]byte, n)
		if _, err := readFull(c.r, payload); err != nil {
			return nil, NewTransportError("read", "", err, ErrorTypePermanent)
		}

		checksum, err := c.r.ReadByte()
		if err != nil {
			return nil, NewTransportError("read", "", err, ErrorTypePermanent)
		}

		if !frame.ValidateChecksum(payload, checksum) {
			debugln("codec: resynchronizing:", NewFrameCorruptedError("ReadFrame", ""))
			continue
		}

		fr, err := unmarshalFrame(payload)
		if err != nil {
			debugln("codec:", err)
			continue
		}
		return fr, nil
	}
}

func (c *Codec) syncToDelimiter() error {
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			return NewTransportError("read", "", err, ErrorTypePermanent)
		}
		if b == frame.StartDelimiter {
			return nil
		}
	}
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func marshalFrame(fr Frame) ([]byte, error) {
	switch f := fr.(type) {
	case ATCommand:
		b := []byte{frame.IDATCommand, f.FrameID, f.Name[0], f.Name[1]}
		return append(b, f.Param...), nil
	case TransmitRequest:
		b := make([]byte, 0, 15+len(f.Data))
		b = append(b, frame.IDTransmitRequest, f.FrameID)
		b = append(b, f.Dest[:]...)
		b = binary.BigEndian.AppendUint16(b, destUnknown16)
		b = append(b, 0 /* broadcast radius */, f.Options, f.AppHeader)
		b = append(b, f.Data...)
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %T is not a frame this radio sends", ErrUnknownAPIID, fr)
	}
}

func unmarshalFrame(payload []byte) (Frame, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("%w: empty frame", ErrUnknownAPIID)
	}
	switch payload[0] {
	case frame.IDATCommandResponse:
		if len(payload) < 5 {
			return nil, fmt.Errorf("%w: short AT response", ErrUnknownAPIID)
		}
		return ATResponse{
			FrameID: payload[1],
			Name:    string(payload[2:4]),
			Status:  payload[4],
			Value:   append([]byte(nil), payload[5:]...),
		}, nil
	case frame.IDTransmitStatus:
		if len(payload) < 3 {
			return nil, fmt.Errorf("%w: short transmit status", ErrUnknownAPIID)
		}
		return TransmitStatus{
			FrameID:    payload[1],
			DeliveryOK: payload[2] == 0,
			RetryCount: payload[2],
		}, nil
	case frame.IDReceivePacket:
		if len(payload) < 12 {
			return nil, fmt.Errorf("%w: short receive packet", ErrUnknownAPIID)
		}
		return unmarshalReceivePacket(payload)
	default:
		return nil, fmt.Errorf("%w: id %#x", ErrUnknownAPIID, payload[0])
	}
}

func unmarshalReceivePacket(payload []byte) (Frame, error) {
	// payload[0] is the API id (0x90), already checked by the caller.
	var src Address
	copy(src[:], payload[1:9])
	options := payload[11]
	rest := payload[12:]
	var appHeader byte
	var data []byte
	if len(rest) > 0 {
		appHeader = rest[0]
		data = append([]byte(nil), rest[1:]...)
	}
	return ReceivePacket{
		Source:    src,
		Options:   options,
		AppHeader: appHeader,
		Data:      data,
	}, nil
}
