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

package rescue

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/stryd/common"
	"github.com/packetd/stryd/logger"
)

var panicTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: common.App,
		Name:      "panic_total",
		Help:      "Recovered panics total",
	},
	[]string{"component"},
)

// HandleCrash 兜底 goroutine panic 单条链接的异常不允许拖垮整个进程
//
// component 进入打点 label 必须取自有限集合 如 dispatcher / admin
// detail 仅进入日志 可携带链接 id 等任意上下文
func HandleCrash(component string, detail string) {
	r := recover()
	if r == nil {
		return
	}
	panicTotal.WithLabelValues(component).Inc()

	const size = 64 << 10
	stacktrace := make([]byte, size)
	stacktrace = stacktrace[:runtime.Stack(stacktrace, false)]
	logger.Errorf("observed a panic (component=%s, %s): %v\n%s", component, detail, r, stacktrace)
}
