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

// sched_test.go drives the Scheduler over a mock.PipePair the way a real
// radio connection would be driven: the "peer" end is a raw frame reader
// and writer operating on the same wire format as xbnet.Codec, since
// xbnet.Codec itself only marshals host->radio frame kinds (ATCommand,
// TransmitRequest) and only unmarshals radio->host kinds (ATResponse,
// TransmitStatus, ReceivePacket) — a Codec cannot round-trip its own
// output, matching the asymmetry of the real API frame protocol.
package sched

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xbnet/xbnet"
	"github.com/xbnet/xbnet/fragment"
	"github.com/xbnet/xbnet/internal/frame"
	"github.com/xbnet/xbnet/transport/mock"
)

var dest = xbnet.Address{1, 2, 3, 4, 5, 6, 7, 8}

type fakeDeliverer struct {
	mu      sync.Mutex
	frames  [][]byte
	sources []xbnet.Address
}

func (d *fakeDeliverer) DeliverFrame(src xbnet.Address, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = append(d.frames, payload)
	d.sources = append(d.sources, src)
	return nil
}

func (d *fakeDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.frames)
}

// decodedTransmitRequest mirrors the TransmitRequest wire layout xbnet's
// marshalFrame produces, decoded here since a Codec only reads radio->host
// frame kinds.
type decodedTransmitRequest struct {
	FrameID   byte
	Dest      xbnet.Address
	Options   byte
	AppHeader byte
	Data      []byte
}

func readRawFrame(t *testing.T, r *bufio.Reader) []byte {
	t.Helper()
	for {
		b, err := r.ReadByte()
		require.NoError(t, err)
		if b == frame.StartDelimiter {
			break
		}
	}
	lenBuf := make([]byte, 2)
	_, err := io.ReadFull(r, lenBuf)
	require.NoError(t, err)
	n := binary.BigEndian.Uint16(lenBuf)

	payload := make([]byte, n)
	_, err = io.ReadFull(r, payload)
	require.NoError(t, err)

	checksum, err := r.ReadByte()
	require.NoError(t, err)
	require.True(t, frame.ValidateChecksum(payload, checksum), "checksum mismatch")
	return payload
}

func readTransmitRequest(t *testing.T, r *bufio.Reader) decodedTransmitRequest {
	t.Helper()
	payload := readRawFrame(t, r)
	require.Equal(t, byte(frame.IDTransmitRequest), payload[0])
	var d decodedTransmitRequest
	d.FrameID = payload[1]
	copy(d.Dest[:], payload[2:10])
	d.Options = payload[13]
	d.AppHeader = payload[14]
	d.Data = append([]byte(nil), payload[15:]...)
	return d
}

func writeRawFrame(t *testing.T, w io.Writer, payload []byte) {
	t.Helper()
	buf := []byte{frame.StartDelimiter}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, frame.CalculateChecksum(payload))
	_, err := w.Write(buf)
	require.NoError(t, err)
}

// writeReceivePacket sends a raw ReceivePacket frame, as if a local radio
// chip had just decoded an RF packet from src.
func writeReceivePacket(t *testing.T, w io.Writer, src xbnet.Address, appHeader byte, data []byte) {
	t.Helper()
	payload := []byte{frame.IDReceivePacket}
	payload = append(payload, src[:]...)
	payload = append(payload, 0xFF, 0xFE) // 16-bit address, unused
	payload = append(payload, 0x01)       // options
	payload = append(payload, appHeader)
	payload = append(payload, data...)
	writeRawFrame(t, w, payload)
}

func newTestScheduler(codec *xbnet.Codec, sink Deliverer, cfg Config) *Scheduler {
	return newTestSchedulerWithFragmenter(codec, fragment.NewFragmenter(200, false), sink, cfg)
}

func newTestSchedulerWithFragmenter(codec *xbnet.Codec, frag *fragment.Fragmenter, sink Deliverer, cfg Config) *Scheduler {
	reasm := fragment.NewReassembler()
	return New(codec, frag, reasm, sink, cfg, 16)
}

func TestSchedulerTransmitsEnqueuedPiece(t *testing.T) {
	t.Parallel()
	a, b := mock.NewPipePair()
	defer func() { _ = a.Close(); _ = b.Close() }()

	s := newTestScheduler(xbnet.NewCodec(a), nil, Config{TxWait: time.Millisecond, EotWait: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	s.EnqueueFrame(dest, []byte("hi"))

	got := readTransmitRequest(t, bufio.NewReader(b))
	require.Equal(t, dest, got.Dest)
	require.Equal(t, fragment.HeaderLast, got.AppHeader)
	require.Equal(t, []byte("hi"), got.Data)
}

// TestSchedulerSplitsOversizedFrameIntoMultiplePieces exercises the
// 450-byte-payload-at-maxpacketsize-100 scenario end to end through
// EnqueueFrame: the Fragmenter, not the adapter, is responsible for
// splitting, and Run must dequeue all five resulting pieces. As in
// cmd/xbnet, the Fragmenter gets maxpacketsize-1 data bytes per piece.
func TestSchedulerSplitsOversizedFrameIntoMultiplePieces(t *testing.T) {
	t.Parallel()
	a, b := mock.NewPipePair()
	defer func() { _ = a.Close(); _ = b.Close() }()

	frag := fragment.NewFragmenter(100-1, false)
	s := newTestSchedulerWithFragmenter(xbnet.NewCodec(a), frag, nil, Config{TxWait: time.Millisecond, EotWait: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	payload := make([]byte, 450)
	for i := range payload {
		payload[i] = byte(i)
	}
	s.EnqueueFrame(dest, payload)

	r := bufio.NewReader(b)
	var rebuilt []byte
	wantHeaders := []byte{fragment.HeaderMore, fragment.HeaderMore, fragment.HeaderMore, fragment.HeaderMore, fragment.HeaderLast}
	for i, wantHeader := range wantHeaders {
		got := readTransmitRequest(t, r)
		require.Equal(t, dest, got.Dest)
		require.Equal(t, wantHeader, got.AppHeader, "piece %d", i)
		rebuilt = append(rebuilt, got.Data...)
	}
	require.Equal(t, payload, rebuilt)
}

func TestSchedulerDeliversReassembledFrameToSink(t *testing.T) {
	t.Parallel()
	a, b := mock.NewPipePair()
	defer func() { _ = a.Close(); _ = b.Close() }()

	sink := &fakeDeliverer{}
	s := newTestScheduler(xbnet.NewCodec(a), sink, Config{TxWait: time.Millisecond, EotWait: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	src := xbnet.Address{9, 9, 9, 9, 9, 9, 9, 9}
	writeReceivePacket(t, b, src, fragment.HeaderLast, []byte("inbound"))

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, []byte("inbound"), sink.frames[0])
	require.Equal(t, src, sink.sources[0])
}

func TestSchedulerDisableXBeeACKsSetsOptionsBit(t *testing.T) {
	t.Parallel()
	a, b := mock.NewPipePair()
	defer func() { _ = a.Close(); _ = b.Close() }()

	s := newTestScheduler(xbnet.NewCodec(a), nil, Config{TxWait: time.Millisecond, EotWait: 10 * time.Millisecond})
	s.SetDisableXBeeACKs(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	s.EnqueueFrame(dest, []byte("x"))

	got := readTransmitRequest(t, bufio.NewReader(b))
	require.Equal(t, byte(1), got.Options)
}

func TestSchedulerStatsCountTxAndRx(t *testing.T) {
	t.Parallel()
	a, b := mock.NewPipePair()
	defer func() { _ = a.Close(); _ = b.Close() }()

	sink := &fakeDeliverer{}
	s := newTestScheduler(xbnet.NewCodec(a), sink, Config{TxWait: time.Millisecond, EotWait: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	s.EnqueueFrame(dest, []byte("out"))
	bReader := bufio.NewReader(b)
	_ = readTransmitRequest(t, bReader)

	writeReceivePacket(t, b, xbnet.Address{9, 9, 9, 9, 9, 9, 9, 9}, fragment.HeaderLast, []byte("in"))

	require.Eventually(t, func() bool {
		snap := s.Stats.Snapshot()
		return snap.TxCount >= 1 && snap.RxCount >= 1
	}, time.Second, time.Millisecond)
}

func TestSchedulerExpiresStalePartialReassembly(t *testing.T) {
	t.Parallel()
	a, b := mock.NewPipePair()
	defer func() { _ = a.Close(); _ = b.Close() }()

	sink := &fakeDeliverer{}
	s := newTestScheduler(xbnet.NewCodec(a), sink, Config{TxWait: time.Millisecond, EotWait: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	writeReceivePacket(t, b, xbnet.Address{9, 9, 9, 9, 9, 9, 9, 9}, fragment.HeaderMore, []byte("partial"))

	require.Eventually(t, func() bool {
		return s.Stats.Snapshot().ReassemblyTimeouts >= 1
	}, time.Second, time.Millisecond)
	require.Equal(t, 0, sink.count())
}
