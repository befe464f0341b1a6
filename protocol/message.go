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
	"github.com/pkg/errors"
)

// RequestCode 请求类型编码
type RequestCode uint16

const (
	CodePing       RequestCode = 1
	CodeGetStats   RequestCode = 2
	CodeResetStats RequestCode = 3
	CodeCompress   RequestCode = 4
)

func (c RequestCode) String() string {
	switch c {
	case CodePing:
		return "Ping"
	case CodeGetStats:
		return "GetStats"
	case CodeResetStats:
		return "ResetStats"
	case CodeCompress:
		return "Compress"
	}
	return "Unknown"
}

// Request 客户端请求 四种类型中仅 Compress 携带 Payload
type Request struct {
	Code    RequestCode
	Payload []byte
}

// StatusCode 响应状态编码
//
// StatusCode 同时作为协议层和压缩层的错误类型向上传递
// 4~32 为保留区间 实现自定义状态码从 33 开始
type StatusCode uint16

const (
	StatusOK                     StatusCode = 0
	StatusUnknownError           StatusCode = 1
	StatusMessageTooLarge        StatusCode = 2
	StatusUnsupportedRequestType StatusCode = 3

	StatusEmptyBuffer    StatusCode = 33
	StatusNonEmptyBuffer StatusCode = 34
	StatusNonAscii       StatusCode = 35
	StatusNonAlphabetic  StatusCode = 36
	StatusNonLowerCase   StatusCode = 37
)

func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "OK"
	case StatusUnknownError:
		return "UnknownError"
	case StatusMessageTooLarge:
		return "MessageTooLarge"
	case StatusUnsupportedRequestType:
		return "UnsupportedRequestType"
	case StatusEmptyBuffer:
		return "EmptyBuffer"
	case StatusNonEmptyBuffer:
		return "NonEmptyBuffer"
	case StatusNonAscii:
		return "NonAscii"
	case StatusNonAlphabetic:
		return "NonAlphabetic"
	case StatusNonLowerCase:
		return "NonLowerCase"
	}
	return "Unknown"
}

// Error 实现 error 接口
func (c StatusCode) Error() string {
	return "protocol/status: " + c.String()
}

// Wire 返回序列化到 wire 的状态码 未定义的状态一律落到 UnknownError
func (c StatusCode) Wire() uint16 {
	switch c {
	case StatusOK, StatusMessageTooLarge, StatusUnsupportedRequestType,
		StatusEmptyBuffer, StatusNonEmptyBuffer,
		StatusNonAscii, StatusNonAlphabetic, StatusNonLowerCase:
		return uint16(c)
	}
	return uint16(StatusUnknownError)
}

// Status 响应消息 Payload 仅在 StatusOK 时允许非空
type Status struct {
	Code    StatusCode
	Payload []byte
}

// OK 构造成功响应 payload 可以为空
func OK(payload []byte) Status {
	return Status{Code: StatusOK, Payload: payload}
}

// StatusFromError 将错误映射为响应状态
//
// 传输层故障不携带自有状态码 统一序列化为 UnknownError
func StatusFromError(err error) Status {
	var code StatusCode
	if errors.As(err, &code) {
		return Status{Code: code}
	}
	return Status{Code: StatusUnknownError}
}
