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

package compress

import (
	"strconv"

	"github.com/packetd/stryd/protocol"
)

// Compressor 游程压缩器 携带 (before, after) 字节统计
//
// 输入为非空的小写 ASCII 字母序列 对每个极大重复段二选一取更短者
// - 展开形式: 重复字符原样输出
// - 标记形式: 十进制长度数字 + 字符
// 长度相同时选择展开形式 因此 "cc" 不会被编码为 "2c"
type Compressor struct {
	before uint64
	after  uint64
}

func New() *Compressor {
	return &Compressor{}
}

// Stats 返回进出压缩步骤的 payload 字节数 (before, after)
func (c *Compressor) Stats() (uint64, uint64) {
	return c.before, c.after
}

// ResetStats 清零统计值
func (c *Compressor) ResetStats() {
	c.before = 0
	c.after = 0
}

// writeLabel 将 count 个 letter 以更短的形式写入 buf 返回写入的字节数
func writeLabel(letter byte, count int, buf []byte) int {
	label := strconv.Itoa(count)
	if len(label)+1 < count {
		n := copy(buf, label)
		buf[n] = letter
		return n + 1
	}

	// 展开形式 若写游标尚未落后于读游标 这里是对相同字母的原样回写
	for i := 0; i < count; i++ {
		buf[i] = letter
	}
	return count
}

// Compress 就地压缩 buf 返回共享同一底层数组的前缀切片
//
// 任何极大重复段的编码都不会长于其原文 写游标始终不会越过读游标
// 校验失败时 buf 的前缀可能已被改写 但不产出结果且统计保持不变
func (c *Compressor) Compress(buf []byte) ([]byte, error) {
	if len(buf) == 0 {
		return nil, protocol.StatusEmptyBuffer
	}

	working := buf[0]
	count := 0
	end := 0

	for i := 0; i < len(buf); i++ {
		cur := buf[i]

		switch {
		case cur >= 0x80:
			return nil, protocol.StatusNonAscii
		case !isASCIIAlphabetic(cur):
			return nil, protocol.StatusNonAlphabetic
		case cur < 'a' || cur > 'z':
			return nil, protocol.StatusNonLowerCase
		}

		if cur == working {
			count++
			continue
		}

		end += writeLabel(working, count, buf[end:])
		working = cur
		count = 1
	}
	end += writeLabel(working, count, buf[end:])

	// 整个输入校验通过后才更新统计
	c.before += uint64(len(buf))
	c.after += uint64(end)
	return buf[:end], nil
}

func isASCIIAlphabetic(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
