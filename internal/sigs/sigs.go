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

package sigs

import (
	"os"
	"os/signal"
	"syscall"
)

// Handler 进程信号的统一入口
//
// Shutdown 触发后调用方应停止 accept 并关闭活跃链接后退出
// Reload 仅用于热更新日志配置 监听地址与协议参数不支持热更新
type Handler struct {
	Shutdown <-chan os.Signal
	Reload   <-chan os.Signal
}

// NewHandler 注册并返回信号 Handler
//
// Shutdown 监听 SIGINT / SIGTERM
// Reload 监听 SIGHUP 也可由管理端 /-/reload 路由主动触发
func NewHandler() Handler {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)

	return Handler{
		Shutdown: shutdown,
		Reload:   reload,
	}
}

// SelfReload 主动触发 Reload 信号
func SelfReload() error {
	return syscall.Kill(syscall.Getpid(), syscall.SIGHUP)
}
