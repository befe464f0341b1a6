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

package zerocopy

import (
	"io"
)

// Reader 零拷贝读取接口
//
// Read 返回底层数组的切片而非拷贝 协议解码器只依赖该接口
type Reader interface {
	Read(n int) ([]byte, error)
}

// Buffer 在 socket 读缓冲与协议解码器之间做零拷贝手递
//
// Write 直接持有传入切片 不做拷贝 因此每轮 socket 读取后必须先喂空
// 再复用读缓冲 需要跨轮存活的字节应由消费方自行 copy
type Buffer struct {
	r int
	b []byte
}

// NewBuffer 创建并返回 Buffer 实例
func NewBuffer(p []byte) *Buffer {
	return &Buffer{b: p}
}

// Read 实现 Reader 接口 返回至多 n 字节 耗尽后返回 io.EOF
func (buf *Buffer) Read(n int) ([]byte, error) {
	if buf.r == len(buf.b) {
		return nil, io.EOF
	}

	if buf.r+n >= len(buf.b) {
		b := buf.b[buf.r:]
		buf.r = len(buf.b)
		return b, nil
	}

	b := buf.b[buf.r : buf.r+n]
	buf.r += n
	return b, nil
}

// Write 开始新一轮数据 覆盖前一轮的未读残留
func (buf *Buffer) Write(p []byte) {
	buf.b = p
	buf.r = 0
}

// Len 返回剩余未读字节数
func (buf *Buffer) Len() int {
	return len(buf.b) - buf.r
}
