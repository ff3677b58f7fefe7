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

package pingpong

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xbnet/xbnet"
)

// frame is one whole EnqueueFrame call; fragmentation itself is the
// Fragmenter's job, tested in package fragment.
type frame struct {
	dest xbnet.Address
	data []byte
}

type fakeSender struct {
	mu     sync.Mutex
	frames []frame
}

func (f *fakeSender) EnqueueFrame(dest xbnet.Address, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame{dest: dest, data: data})
}

func (f *fakeSender) all() []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]frame(nil), f.frames...)
}

var dest = xbnet.Address{1, 2, 3, 4, 5, 6, 7, 8}

func TestPingDefaultsInterval(t *testing.T) {
	t.Parallel()
	p := NewPing(&fakeSender{}, dest, 0)
	require.Equal(t, 5*time.Second, p.interval)
}

func TestPingEmitsCountedMessages(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	p := NewPing(sender, dest, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 22*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	frames := sender.all()
	require.GreaterOrEqual(t, len(frames), 2)
	require.Equal(t, "ping 1", string(frames[0].data))
	require.Equal(t, dest, frames[0].dest)
	require.Equal(t, "ping 2", string(frames[1].data))
}

type fakeProber struct {
	rssi, snr int
	ok        bool
}

func (f fakeProber) Probe() (int, int, bool) { return f.rssi, f.snr, f.ok }

func TestPongEchoesWithoutProber(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	pg := NewPong(sender, nil)

	err := pg.DeliverFrame(dest, []byte("hello"))
	require.NoError(t, err)

	frames := sender.all()
	require.Len(t, frames, 1)
	require.Equal(t, dest, frames[0].dest)
	require.Equal(t, "pong: hello", string(frames[0].data))
}

func TestPongAppendsQualityWhenProberOK(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	pg := NewPong(sender, fakeProber{rssi: -42, snr: 7, ok: true})

	err := pg.DeliverFrame(dest, []byte("hi"))
	require.NoError(t, err)

	frames := sender.all()
	require.Len(t, frames, 1)
	require.Equal(t, "pong: hi rssi=-42 snr=7", string(frames[0].data))
}

func TestPongOmitsQualityWhenProberNotOK(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	pg := NewPong(sender, fakeProber{ok: false})

	err := pg.DeliverFrame(dest, []byte("hi"))
	require.NoError(t, err)

	frames := sender.all()
	require.Equal(t, "pong: hi", string(frames[0].data))
}
