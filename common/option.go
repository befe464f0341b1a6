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
	"github.com/spf13/cast"
)

// Options 组件级的自由选项 由配置文件原样透传
//
// dispatcher 的 protocol 小节即以 Options 形式到达编解码层
// 目前唯一的键是 maxPayload
type Options map[string]any

func (o Options) Has(k string) bool {
	_, ok := o[k]
	return ok
}

func (o Options) GetInt(k string) (int, error) {
	return cast.ToIntE(o[k])
}
