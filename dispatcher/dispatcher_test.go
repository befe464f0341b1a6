// Copyright 2026 The stryd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dispatcher

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/stryd/confengine"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	conf, err := confengine.LoadContent([]byte(`
dispatcher:
  address: "127.0.0.1:0"
`))
	assert.NoError(t, err)

	d, err := New(conf)
	assert.NoError(t, err)
	assert.NoError(t, d.Listen())

	go d.Serve()
	t.Cleanup(func() { d.Close() })
	return d
}

func dialDispatcher(t *testing.T, d *Dispatcher) net.Conn {
	conn, err := net.Dial("tcp", d.Addr().String())
	assert.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn net.Conn, request []byte, n int) []byte {
	_, err := conn.Write(request)
	assert.NoError(t, err)

	resp := make([]byte, n)
	_, err = io.ReadFull(conn, resp)
	assert.NoError(t, err)
	return resp
}

func TestDispatcherScenarios(t *testing.T) {
	tests := []struct {
		name    string
		request []byte
		want    []byte
	}{
		{
			name:    "Ping",
			request: []byte("STRY\x00\x00\x00\x01"),
			want:    []byte("STRY\x00\x00\x00\x00"),
		},
		{
			name:    "CompressSingle",
			request: []byte("STRY\x00\x01\x00\x04a"),
			want:    []byte("STRY\x00\x01\x00\x00a"),
		},
		{
			name:    "CompressTriple",
			request: []byte("STRY\x00\x03\x00\x04aaa"),
			want:    []byte("STRY\x00\x02\x00\x003a"),
		},
		{
			name:    "CompressTwoRuns",
			request: []byte("STRY\x00\x08\x00\x04aaaaabbb"),
			want:    []byte("STRY\x00\x04\x00\x005a3b"),
		},
		{
			name:    "CompressMixedRuns",
			request: []byte("STRY\x00\x10\x00\x04aaaaabbbbbbaaabb"),
			want:    []byte("STRY\x00\x08\x00\x005a6b3abb"),
		},
		{
			name:    "CompressEmpty",
			request: []byte("STRY\x00\x00\x00\x04"),
			want:    []byte("STRY\x00\x00\x00\x21"),
		},
		{
			name:    "PingWithPayload",
			request: []byte("STRY\x00\x05\x00\x01hello"),
			want:    []byte("STRY\x00\x00\x00\x22"),
		},
		{
			name:    "CompressDigits",
			request: []byte("STRY\x00\x03\x00\x04123"),
			want:    []byte("STRY\x00\x00\x00\x24"),
		},
		{
			name:    "MessageTooLarge",
			request: []byte("STRY\x7f\xff\x00\x04"),
			want:    []byte("STRY\x00\x00\x00\x02"),
		},
		{
			name:    "UnsupportedRequest",
			request: []byte("STRY\x00\x00\x00\x63"),
			want:    []byte("STRY\x00\x00\x00\x03"),
		},
	}

	d := newTestDispatcher(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dialDispatcher(t, d)
			assert.Equal(t, tt.want, roundTrip(t, conn, tt.request, len(tt.want)))
		})
	}
}

// TestDispatcherSplitWrite 请求以任意间隔分多次写入 响应不受分包影响
func TestDispatcherSplitWrite(t *testing.T) {
	d := newTestDispatcher(t)
	conn := dialDispatcher(t, d)

	chunks := [][]byte{
		[]byte("STRY\x00"),
		[]byte("\x0c\x00"),
		[]byte("\x04cross"),
		[]byte("section"),
	}
	for _, chunk := range chunks {
		_, err := conn.Write(chunk)
		assert.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	want := []byte("STRY\x00\x0b\x00\x00cro3section")
	resp := make([]byte, len(want))
	_, err := io.ReadFull(conn, resp)
	assert.NoError(t, err)
	assert.Equal(t, want, resp)
}

func TestDispatcherGetStats(t *testing.T) {
	d := newTestDispatcher(t)

	t.Run("FreshConnection", func(t *testing.T) {
		conn := dialDispatcher(t, d)
		// 统计在组装响应体之前记账 此时 received 已包含 GetStats 请求自身的 8 字节
		want := []byte("STRY\x00\x09\x00\x00" + "\x00\x00\x00\x08" + "\x00\x00\x00\x00" + "\x00")
		assert.Equal(t, want, roundTrip(t, conn, []byte("STRY\x00\x00\x00\x02"), len(want)))
	})

	t.Run("CompressionRatio", func(t *testing.T) {
		conn := dialDispatcher(t, d)
		roundTrip(t, conn, []byte("STRY\x00\x03\x00\x04aaa"), 10)

		// received = 11 + 8 sent = 10 ratio = floor(2/3*100) = 66
		want := []byte("STRY\x00\x09\x00\x00" + "\x00\x00\x00\x13" + "\x00\x00\x00\x0a" + "\x42")
		assert.Equal(t, want, roundTrip(t, conn, []byte("STRY\x00\x00\x00\x02"), len(want)))
	})

	t.Run("ResetStats", func(t *testing.T) {
		conn := dialDispatcher(t, d)
		roundTrip(t, conn, []byte("STRY\x00\x00\x00\x01"), 8)
		assert.Equal(t,
			[]byte("STRY\x00\x00\x00\x00"),
			roundTrip(t, conn, []byte("STRY\x00\x00\x00\x03"), 8),
		)

		// 清零发生在 ResetStats 响应编码之前 其 8 字节响应计入 sent received 为 GetStats 请求自身的 8 字节
		want := []byte("STRY\x00\x09\x00\x00" + "\x00\x00\x00\x08" + "\x00\x00\x00\x08" + "\x00")
		assert.Equal(t, want, roundTrip(t, conn, []byte("STRY\x00\x00\x00\x02"), len(want)))
	})
}

// TestDispatcherRecoversAfterError 协议错误与压缩错误不终止链接
func TestDispatcherRecoversAfterError(t *testing.T) {
	d := newTestDispatcher(t)
	conn := dialDispatcher(t, d)

	// 带 payload 的 Ping 声明的 payload 不被消费 残留字节由 resync 吞掉
	assert.Equal(t,
		[]byte("STRY\x00\x00\x00\x22"),
		roundTrip(t, conn, []byte("STRY\x00\x01\x00\x01x"), 8),
	)
	assert.Equal(t,
		[]byte("STRY\x00\x00\x00\x00"),
		roundTrip(t, conn, []byte("STRY\x00\x00\x00\x01"), 8),
	)

	assert.Equal(t,
		[]byte("STRY\x00\x00\x00\x25"),
		roundTrip(t, conn, []byte("STRY\x00\x03\x00\x04aBc"), 8),
	)
	assert.Equal(t,
		[]byte("STRY\x00\x02\x00\x003z"),
		roundTrip(t, conn, []byte("STRY\x00\x03\x00\x04zzz"), 10),
	)
}

// TestDispatcherConnectionScope 统计互不串扰 每条链接有独立的 codec 与 compressor
func TestDispatcherConnectionScope(t *testing.T) {
	d := newTestDispatcher(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			conn, err := net.Dial("tcp", d.Addr().String())
			if !assert.NoError(t, err) {
				return
			}
			defer conn.Close()

			want := []byte("STRY\x00\x09\x00\x00" + "\x00\x00\x00\x08" + "\x00\x00\x00\x00" + "\x00")
			assert.Equal(t, want, roundTrip(t, conn, []byte("STRY\x00\x00\x00\x02"), len(want)))
		}()
	}
	wg.Wait()
}

func TestDispatcherGlobalStats(t *testing.T) {
	d := newTestDispatcher(t)

	conn := dialDispatcher(t, d)
	roundTrip(t, conn, []byte("STRY\x00\x03\x00\x04aaa"), 10)
	conn.Close()

	// 链接关闭后计数才归并到进程级累计值
	assert.Eventually(t, func() bool {
		snap := d.StatsSnapshot()
		return snap.Connections == 1 &&
			snap.ReceivedBytes == 11 &&
			snap.SentBytes == 10 &&
			snap.CompressedBefore == 3 &&
			snap.CompressedAfter == 2
	}, time.Second, 10*time.Millisecond)
}

func TestConfigMaxPayload(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		want    int
	}{
		{
			name:    "Default",
			content: "dispatcher:\n  address: \"127.0.0.1:0\"\n",
			want:    16384,
		},
		{
			name:    "Custom",
			content: "dispatcher:\n  protocol:\n    maxPayload: 4096\n",
			want:    4096,
		},
		{
			name:    "UpperBoundExclusive",
			content: "dispatcher:\n  protocol:\n    maxPayload: 32768\n",
			wantErr: true,
		},
		{
			name:    "TooSmall",
			content: "dispatcher:\n  protocol:\n    maxPayload: 4095\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, err := confengine.LoadContent([]byte(tt.content))
			assert.NoError(t, err)

			d, err := New(conf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, d.maxPayload)
		})
	}
}
