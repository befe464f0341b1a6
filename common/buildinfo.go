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

import (
	"fmt"
)

// 以下变量由 ldflags 注入
//
// go build -ldflags "\
//   -X github.com/packetd/stryd/common.buildVersion=v0.1.0 \
//   -X github.com/packetd/stryd/common.buildHash=$(git rev-parse --short HEAD) \
//   -X github.com/packetd/stryd/common.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	buildVersion string
	buildTime    string
	buildHash    string
)

// BuildInfo 代表程序构建信息
type BuildInfo struct {
	Version string
	GitHash string
	Time    string
}

// String 格式化为单行 用于启动日志与 version 子命令输出
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s %s (hash=%s built=%s)", App, b.Version, b.GitHash, b.Time)
}

// GetBuildInfo 返回构建信息 未经 ldflags 注入时版本回退到 Version 常量
func GetBuildInfo() BuildInfo {
	version := buildVersion
	if version == "" {
		version = Version
	}
	return BuildInfo{
		Version: version,
		GitHash: buildHash,
		Time:    buildTime,
	}
}
