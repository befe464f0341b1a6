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
	"encoding/binary"
	"io"
	"math"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/stryd/common"
	"github.com/packetd/stryd/compress"
	"github.com/packetd/stryd/internal/zerocopy"
	"github.com/packetd/stryd/logger"
	"github.com/packetd/stryd/protocol"
)

// connection 单条 TCP 链接的处理上下文
//
// 每条链接持有独立的 Codec 与 Compressor 统计均为链接级作用域
// 链接关闭时由 flushStats 一次性归并到进程级累计值
type connection struct {
	id          string
	log         logger.Logger
	conn        net.Conn
	codec       *protocol.Codec
	comp        *compress.Compressor
	readTimeout time.Duration
	accumulated *globalStats
}

func newConnection(nc net.Conn, maxPayload int, readTimeout time.Duration, acc *globalStats) *connection {
	id := uuid.NewString()
	return &connection{
		id:          id,
		log:         logger.With("conn", id),
		conn:        nc,
		codec:       protocol.NewCodec(maxPayload),
		comp:        compress.New(),
		readTimeout: readTimeout,
		accumulated: acc,
	}
}

// serve 链接内的串行处理循环
//
// 协议错误与压缩错误作为状态包发回 链接继续存活
// 传输层错误终止链接 若发生在响应写入期间则本条响应不保证送达
func (c *connection) serve() {
	buf := make([]byte, common.ReadWriteBlockSize)
	zbuf := zerocopy.NewBuffer(nil)

	for {
		if c.readTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}

		n, err := c.conn.Read(buf)
		if err != nil {
			if err != io.EOF {
				c.log.Warnf("read failed: %v", err)
			}
			return
		}
		receivedBytesTotal.Add(float64(n))

		zbuf.Write(buf[:n])
		for _, ret := range c.codec.Decode(zbuf) {
			if err := c.write(c.handle(ret)); err != nil {
				c.log.Errorf("write failed: %v", err)
				return
			}
		}
	}
}

func (c *connection) handle(ret protocol.Result) protocol.Status {
	if ret.Err != protocol.StatusOK {
		return protocol.Status{Code: ret.Err}
	}

	req := ret.Request
	requestsTotal.WithLabelValues(req.Code.String()).Inc()

	switch req.Code {
	case protocol.CodePing:
		return protocol.OK(nil)

	case protocol.CodeGetStats:
		return protocol.OK(c.statsBody())

	case protocol.CodeResetStats:
		c.codec.ResetStats()
		c.comp.ResetStats()
		return protocol.OK(nil)

	case protocol.CodeCompress:
		out, err := c.comp.Compress(req.Payload)
		if err != nil {
			return protocol.StatusFromError(err)
		}
		compressedBytesBefore.Add(float64(len(req.Payload)))
		compressedBytesAfter.Add(float64(len(out)))
		return protocol.OK(out)
	}

	return protocol.Status{Code: protocol.StatusUnsupportedRequestType}
}

// statsBody 组装 GetStats 的 9 字节响应体
//
// received/sent 以 u32 大端序饱和截断 第 9 字节为压缩率百分比向下取整
// before 为 0 时压缩率取 0
func (c *connection) statsBody() []byte {
	stats := c.codec.Stats()
	before, after := c.comp.Stats()

	body := make([]byte, 9)
	binary.BigEndian.PutUint32(body[0:4], saturateUint32(stats.Received))
	binary.BigEndian.PutUint32(body[4:8], saturateUint32(stats.Sent))
	if before > 0 {
		body[8] = byte(after * 100 / before)
	}
	return body
}

func saturateUint32(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func (c *connection) write(status protocol.Status) error {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	c.codec.Encode(bb, status)
	responsesTotal.WithLabelValues(status.Code.String()).Inc()
	sentBytesTotal.Add(float64(len(bb.B)))

	_, err := c.conn.Write(bb.B)
	return err
}

// flushStats 链接关闭时将残余的链接级计数归并到进程级累计值
func (c *connection) flushStats() {
	before, after := c.comp.Stats()
	c.accumulated.merge(c.codec.Stats(), before, after)
}
