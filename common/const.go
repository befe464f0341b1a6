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

package common

const (
	// App 应用程序名称
	App = "stryd"

	// Version 应用程序版本
	Version = "v0.1.0"

	// ReadWriteBlockSize 单次 socket 读取的缓冲区长度
	//
	// 完整数据包最大为 8 + MaxPayload 字节 但没必要为每条链接预留这么大的读缓冲
	// 选择一个`折中的` buffersize 跨块拼接交由解码器负责
	ReadWriteBlockSize = 4096
)
