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

package protocol

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/stryd/common"
	"github.com/packetd/stryd/internal/zerocopy"
)

func newError(format string, args ...any) error {
	format = "stry/codec: " + format
	return errors.Errorf(format, args...)
}

var magicHeader = []byte("STRY") // 0x53545259

const (
	// HeaderSize 数据包头部长度 magic(4) + payload_len(2) + code(2)
	HeaderSize = 8

	// MinPayloadLimit / MaxPayloadLimit maxPayload 的合法区间 [4 KiB, 32 KiB)
	MinPayloadLimit = 1 << 12
	MaxPayloadLimit = 1 << 15

	// DefaultMaxPayload 生产环境使用的 maxPayload
	DefaultMaxPayload = 16 * 1024
)

// state 记录着 Codec 的解码状态
type state uint8

const (
	// stateMagicHeader 初始值 正在寻找 magic 头
	stateMagicHeader state = iota

	// statePayloadLen 解析 payload 长度字段
	statePayloadLen

	// stateRequestCode 解析请求码字段
	stateRequestCode

	// statePayload 读取 payload 内容 仅 Compress 请求会进入
	statePayload
)

// Stats Codec 的字节统计
//
// Received 统计喂给解码器的每一个字节 包括 resync 期间被丢弃的
// Sent 统计编码器产出的每一个字节
type Stats struct {
	Received uint64
	Sent     uint64
}

// Result 单个数据包的解码结果
//
// Err 不为 StatusOK 时代表一次协议错误 调用方应将其作为响应发回
// 协议错误不终止链接 解码器自身已重置并继续寻找下一个 magic 头
type Result struct {
	Request *Request
	Err     StatusCode
}

// Codec STRY 协议的流式编解码器
//
// 解码器要求支持任意粒度的分包 字节只有在角色确定后才会被消费
// 处于 stateMagicHeader 时若头部不匹配 仅前进一个字节后重试
// 保证错位的流能在下一个合法 magic 处重新同步 期间不产生任何诊断输出
type Codec struct {
	maxPayload int
	state      state
	length     int // 从 statePayloadLen 透传到 statePayload
	rbuf       bytes.Buffer
	stats      Stats
}

// NewCodec 创建并返回 Codec 实例
//
// maxPayload 是编译期约定的常量 越界属于编程错误 直接 panic
func NewCodec(maxPayload int) *Codec {
	if maxPayload < MinPayloadLimit {
		panic(newError("max payload %d less than 4 KiB limit", maxPayload))
	}
	if maxPayload >= MaxPayloadLimit {
		panic(newError("max payload %d greater or equal to 32 KiB limit", maxPayload))
	}
	return &Codec{maxPayload: maxPayload}
}

// Stats 返回当前统计值
func (c *Codec) Stats() Stats {
	return c.stats
}

// ResetStats 清零统计值
func (c *Codec) ResetStats() {
	c.stats = Stats{}
}

// Decode 读完 r 中的全部字节 返回本轮解析出的所有结果
//
// 不足一个完整数据包的字节缓存在 Codec 内部等待下一轮
// 解码结果与分包边界无关 同一字节流以任何方式切割产出的结果序列一致
func (c *Codec) Decode(r zerocopy.Reader) []Result {
	for {
		b, err := r.Read(common.ReadWriteBlockSize)
		if err != nil {
			break
		}
		c.stats.Received += uint64(len(b))
		c.rbuf.Write(b)
	}

	var results []Result
	for {
		ret, ok := c.next()
		if !ok {
			break
		}
		results = append(results, ret)
	}
	return results
}

// next 尝试从缓冲中解出一个完整数据包
//
// 返回 ok=false 表示字节不足 需等待更多数据 状态机停在原地
func (c *Codec) next() (Result, bool) {
	for {
		switch c.state {
		case stateMagicHeader:
			if c.rbuf.Len() < len(magicHeader) {
				return Result{}, false
			}
			if !bytes.Equal(c.rbuf.Bytes()[:len(magicHeader)], magicHeader) {
				c.rbuf.Next(1) // 错位 前进一个字节后重试
				continue
			}
			c.rbuf.Next(len(magicHeader))
			c.state = statePayloadLen

		case statePayloadLen:
			if c.rbuf.Len() < 2 {
				return Result{}, false
			}
			length := int(binary.BigEndian.Uint16(c.rbuf.Next(2)))
			if length > c.maxPayload {
				c.state = stateMagicHeader
				return Result{Err: StatusMessageTooLarge}, true
			}
			c.length = length
			c.state = stateRequestCode

		case stateRequestCode:
			if c.rbuf.Len() < 2 {
				return Result{}, false
			}
			code := RequestCode(binary.BigEndian.Uint16(c.rbuf.Next(2)))
			c.state = stateMagicHeader // 默认重置 Payload 分支会再覆盖
			switch code {
			case CodePing, CodeGetStats, CodeResetStats:
				if c.length != 0 {
					// 声明的 payload 不被消费 残留字节交由 resync 吞掉
					return Result{Err: StatusNonEmptyBuffer}, true
				}
				return Result{Request: &Request{Code: code}}, true
			case CodeCompress:
				if c.length == 0 {
					return Result{Err: StatusEmptyBuffer}, true
				}
				c.state = statePayload
			default:
				return Result{Err: StatusUnsupportedRequestType}, true
			}

		case statePayload:
			if c.rbuf.Len() < c.length {
				return Result{}, false
			}
			// rbuf.Next 返回的切片会被后续读取作废 这里必须拷贝
			payload := make([]byte, c.length)
			copy(payload, c.rbuf.Next(c.length))
			c.state = stateMagicHeader
			return Result{Request: &Request{Code: CodeCompress, Payload: payload}}, true
		}
	}
}

// Encode 将 status 序列化为完整数据包并追加写入 bb
//
// 仅 StatusOK 携带 payload 其余状态 payload_len 恒为 0
// 产出恒为 HeaderSize + len(payload) 字节
func (c *Codec) Encode(bb *bytebufferpool.ByteBuffer, status Status) {
	payload := status.Payload
	if status.Code != StatusOK {
		payload = nil
	}

	var head [HeaderSize]byte
	copy(head[:], magicHeader)
	binary.BigEndian.PutUint16(head[4:6], uint16(len(payload)))
	binary.BigEndian.PutUint16(head[6:8], status.Code.Wire())

	bb.Write(head[:])
	bb.Write(payload)
	c.stats.Sent += uint64(HeaderSize + len(payload))
}
