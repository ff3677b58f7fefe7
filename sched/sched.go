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

// Package sched implements the half-duplex transmit scheduler: pacing,
// the txslot turn-taking protocol, and the eotwait reassembly yield that
// keeps one side from transmitting over the other's in-flight burst.
package sched

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/xbnet/xbnet"
	"github.com/xbnet/xbnet/fragment"
)

// Config holds the scheduler's timing knobs.
type Config struct {
	TxWait  time.Duration // minimum spacing between transmitted frames
	EotWait time.Duration // how long to wait for a peer to finish its burst
	TxSlot  time.Duration // how long this side may hold the turn; 0 disables it
}

// Stats are atomic counters exposed for --readqual and debug logging.
type Stats struct {
	TxCount              int64
	RxCount              int64
	FragmentsReassembled int64
	ReassemblyTimeouts   int64
}

func (s *Stats) txInc()       { atomic.AddInt64(&s.TxCount, 1) }
func (s *Stats) rxInc()       { atomic.AddInt64(&s.RxCount, 1) }
func (s *Stats) reassembled() { atomic.AddInt64(&s.FragmentsReassembled, 1) }
func (s *Stats) timedOut()    { atomic.AddInt64(&s.ReassemblyTimeouts, 1) }

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Stats {
	return Stats{
		TxCount:              atomic.LoadInt64(&s.TxCount),
		RxCount:              atomic.LoadInt64(&s.RxCount),
		FragmentsReassembled: atomic.LoadInt64(&s.FragmentsReassembled),
		ReassemblyTimeouts:   atomic.LoadInt64(&s.ReassemblyTimeouts),
	}
}

// Deliverer receives whole reassembled frames from the scheduler's
// receive path.
type Deliverer interface {
	DeliverFrame(src xbnet.Address, payload []byte) error
}

// Scheduler is the single-goroutine half-duplex cooperative loop: it owns
// the Codec, the Fragmenter, and the Reassembler, and is not safe for
// concurrent use from more than Run's own goroutine. EnqueueFrame is the
// one method other goroutines may call directly (a channel send); it
// hands whole frames to Run, which alone drives the Fragmenter.
type Scheduler struct {
	codec *xbnet.Codec
	frag  *fragment.Fragmenter
	reasm *fragment.Reassembler
	sink  Deliverer
	cfg   Config
	Stats Stats

	frameQ        chan userFrame
	pendingPieces []fragment.Piece

	lastTx          time.Time
	txSlotStart     *time.Time
	peerHasTurn     bool
	frameIDFor      func() byte
	txReportsOn     bool
	disableXBeeACKs bool
}

// userFrame is one whole outbound frame awaiting fragmentation, fed from
// producer goroutines (pipe/tap/tun readers, pingpong) into the scheduler
// loop, the sole owner of the Fragmenter.
type userFrame struct {
	dest xbnet.Address
	data []byte
}

// SetDisableXBeeACKs sets options bit 0 on every outbound TransmitRequest.
func (s *Scheduler) SetDisableXBeeACKs(disable bool) {
	s.disableXBeeACKs = disable
}

// SetSink installs the Deliverer that receives reassembled frames. It
// exists separately from New because adapters typically need the
// Scheduler itself (as a Sender) before they can be constructed, and the
// Scheduler needs the adapter (as a Deliverer) in turn — SetSink breaks
// that construction cycle.
func (s *Scheduler) SetSink(sink Deliverer) {
	s.sink = sink
}

// New builds a Scheduler. queueDepth bounds the producer-facing send
// queue.
func New(codec *xbnet.Codec, frag *fragment.Fragmenter, reasm *fragment.Reassembler, sink Deliverer, cfg Config, queueDepth int) *Scheduler {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	return &Scheduler{
		codec:      codec,
		frag:       frag,
		reasm:      reasm,
		sink:       sink,
		cfg:        cfg,
		frameQ:     make(chan userFrame, queueDepth),
		frameIDFor: codec.AllocFrameID,
	}
}

// SetTxReportsEnabled controls whether outbound TransmitRequests get a
// nonzero frame id (and thus a TransmitStatus reply), per the radio's
// configureTxReports setting.
func (s *Scheduler) SetTxReportsEnabled(enabled bool) {
	s.txReportsOn = enabled
}

// EnqueueFrame pushes a whole user frame onto the bounded frame queue for
// fragmentation and transmission to dest. It blocks if the queue is full
// — callers (pipe/tap/tun readers, pingpong) should size their own
// read-ahead so this provides natural backpressure rather than dropping
// data. The Fragmenter itself is only ever touched by the Run goroutine;
// EnqueueFrame is the channel that keeps that true.
func (s *Scheduler) EnqueueFrame(dest xbnet.Address, data []byte) {
	s.frameQ <- userFrame{dest: dest, data: data}
}

// inboundFrame is fed by the receive goroutine into the scheduler loop.
type inboundFrame struct {
	src     xbnet.Address
	header  byte
	data    []byte
}

// Run drives the scheduler loop until ctx is canceled or the underlying
// codec returns a fatal error. It spawns one internal goroutine to read
// inbound frames (the radio is the only reader of the wire) and performs
// all transmit pacing, txslot accounting, and reassembly delivery on the
// calling goroutine.
func (s *Scheduler) Run(ctx context.Context) error {
	inbound := make(chan inboundFrame, 16)
	errCh := make(chan error, 1)
	go s.readLoop(ctx, inbound, errCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if piece, ok := s.nextOutboundPiece(); ok {
			if err := s.handleOutbound(ctx, piece, inbound, errCh); err != nil {
				return err
			}
			continue
		}
		if len(s.frameQ) == 0 {
			s.txSlotStart = nil // send queue drained: the current burst is over
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case in := <-inbound:
			s.handleInbound(in)
		case frm := <-s.frameQ:
			s.frag.EnqueueUserFrame(frm.dest, frm.data)
		case <-ticker.C:
			s.expireReassembly()
		}
	}
}

// nextOutboundPiece returns the next piece to transmit, preferring an
// internally generated continue-reply (see onPeerFrame) over the
// Fragmenter's own queue so a peer blocked on blockUntilTurnReclaimed gets
// unstuck promptly.
func (s *Scheduler) nextOutboundPiece() (fragment.Piece, bool) {
	if len(s.pendingPieces) > 0 {
		p := s.pendingPieces[0]
		s.pendingPieces = s.pendingPieces[1:]
		return p, true
	}
	return s.frag.NextPiece()
}

func (s *Scheduler) readLoop(ctx context.Context, out chan<- inboundFrame, errCh chan<- error) {
	for {
		if ctx.Err() != nil {
			return
		}
		fr, err := s.codec.ReadFrame()
		if err != nil {
			select {
			case errCh <- err:
			case <-ctx.Done():
			}
			return
		}
		rp, ok := fr.(xbnet.ReceivePacket)
		if !ok {
			// TransmitStatus frames only arrive when tx reports are enabled
			// (configureTxReports); they are logged, other kinds dropped.
			if ts, isStatus := fr.(xbnet.TransmitStatus); isStatus {
				xbnet.Debugf("sched: transmit status for frame %d: delivered=%v", ts.FrameID, ts.DeliveryOK)
			}
			continue
		}
		select {
		case out <- inboundFrame{src: rp.Source, header: rp.AppHeader, data: rp.Data}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleInbound(in inboundFrame) {
	s.Stats.rxInc()
	frame, delivered, turnRequested := s.reasm.Feed(in.src, in.header, in.data, s.cfg.EotWait)
	if delivered {
		s.Stats.reassembled()
		if s.sink != nil {
			if err := s.sink.DeliverFrame(in.src, frame); err != nil {
				xbnet.Debugf("sched: delivering frame from %s: %v", in.src, err)
			}
		}
	}
	s.onPeerFrame(in.src, turnRequested)
}

// onPeerFrame implements the continue-reply rule for a peer frame whose
// header requested a turn: if we have queued data it goes out on the next
// dequeue subject to normal pacing; otherwise we enqueue a zero-length
// continue piece addressed to src so the peer's txslot wait doesn't stall
// forever.
func (s *Scheduler) onPeerFrame(src xbnet.Address, turnRequested bool) {
	if !turnRequested {
		return
	}
	s.peerHasTurn = false
	if piece, ok := s.frag.NextPiece(); ok {
		s.pendingPieces = append(s.pendingPieces, piece)
		return
	}
	s.pendingPieces = append(s.pendingPieces, fragment.Piece{Dest: src, Header: fragment.HeaderLast})
}

func (s *Scheduler) expireReassembly() {
	dropped := s.reasm.ExpireOlderThan(time.Now())
	for _, addr := range dropped {
		s.Stats.timedOut()
		xbnet.Debugf("sched: %v: %s", xbnet.ErrReassemblyTimeout, addr)
	}
}

func (s *Scheduler) handleOutbound(ctx context.Context, piece fragment.Piece, inbound chan inboundFrame, errCh chan error) error {
	s.pace()
	if err := s.yieldForReassembly(ctx, inbound, errCh); err != nil {
		return err
	}

	header := piece.Header
	if s.cfg.TxSlot > 0 {
		if s.txSlotStart == nil {
			now := time.Now()
			s.txSlotStart = &now
		}
		if piece.Header == fragment.HeaderLast && time.Since(*s.txSlotStart) >= s.cfg.TxSlot {
			header = fragment.HeaderLastAndTurn
			s.txSlotStart = nil
			s.peerHasTurn = true
		}
	}

	id := byte(0)
	if s.txReportsOn {
		id = s.frameIDFor()
	}
	var options byte
	if s.disableXBeeACKs {
		options = 1
	}
	err := s.codec.WriteFrame(xbnet.TransmitRequest{
		FrameID:   id,
		Dest:      piece.Dest,
		Options:   options,
		AppHeader: header,
		Data:      piece.Data,
	})
	if err != nil {
		return err
	}
	s.lastTx = time.Now()
	s.Stats.txInc()

	if header == fragment.HeaderLastAndTurn {
		if err := s.blockUntilTurnReclaimed(ctx, inbound, errCh); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) pace() {
	wait := s.cfg.TxWait - time.Since(s.lastTx)
	if wait > 0 {
		time.Sleep(wait)
	}
}

// yieldForReassembly implements the Eotwait yield: if a peer has an
// in-flight partial frame, wait for it to complete or expire before
// transmitting, so we don't step on the peer's burst. readLoop has
// already exited by the time it sends on errCh, so that error must be
// returned to Run rather than dropped — Run's own select will never see
// it again.
func (s *Scheduler) yieldForReassembly(ctx context.Context, inbound chan inboundFrame, errCh chan error) error {
	if !s.reasm.HasInFlight() {
		return nil
	}
	deadline := time.After(s.cfg.EotWait)
	for s.reasm.HasInFlight() {
		select {
		case in := <-inbound:
			s.handleInbound(in)
		case err := <-errCh:
			return err
		case <-deadline:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// blockUntilTurnReclaimed holds off further dequeues after yielding the
// txslot until either an inbound frame arrives or TxWait+EotWait elapses.
func (s *Scheduler) blockUntilTurnReclaimed(ctx context.Context, inbound chan inboundFrame, errCh chan error) error {
	timeout := time.After(s.cfg.TxWait + s.cfg.EotWait)
	select {
	case in := <-inbound:
		s.handleInbound(in)
	case err := <-errCh:
		return err
	case <-timeout:
		xbnet.Debugf("sched: %v, resuming transmission", xbnet.NewTimeoutError("blockUntilTurnReclaimed", ""))
	case <-ctx.Done():
	}
	return nil
}
