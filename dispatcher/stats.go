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
	"sync"

	"github.com/packetd/stryd/protocol"
)

// Snapshot 进程级统计快照
type Snapshot struct {
	Connections      uint64 `json:"connections"`
	ReceivedBytes    uint64 `json:"receivedBytes"`
	SentBytes        uint64 `json:"sentBytes"`
	CompressedBefore uint64 `json:"compressedBefore"`
	CompressedAfter  uint64 `json:"compressedAfter"`
}

// globalStats 进程级统计累计值
//
// 临界区仅覆盖计数器的归并与读取 禁止跨越任何 I/O
type globalStats struct {
	mut  sync.Mutex
	snap Snapshot
}

func (gs *globalStats) merge(stats protocol.Stats, before, after uint64) {
	gs.mut.Lock()
	defer gs.mut.Unlock()

	gs.snap.Connections++
	gs.snap.ReceivedBytes += stats.Received
	gs.snap.SentBytes += stats.Sent
	gs.snap.CompressedBefore += before
	gs.snap.CompressedAfter += after
}

func (gs *globalStats) SnapshotStats() Snapshot {
	gs.mut.Lock()
	defer gs.mut.Unlock()
	return gs.snap
}
