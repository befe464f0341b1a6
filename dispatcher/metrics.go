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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/stryd/common"
)

var (
	connectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "connections_total",
			Help:      "Accepted connections total",
		},
	)

	connectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "connections_active",
			Help:      "Active connections",
		},
	)

	receivedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "received_bytes_total",
			Help:      "Bytes read from client sockets total",
		},
	)

	sentBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "sent_bytes_total",
			Help:      "Bytes written to client sockets total",
		},
	)

	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "requests_total",
			Help:      "Decoded requests total",
		},
		[]string{"code"},
	)

	responsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "responses_total",
			Help:      "Responses written total",
		},
		[]string{"status"},
	)

	compressedBytesBefore = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "compressed_bytes_before_total",
			Help:      "Payload bytes entering the compression step total",
		},
	)

	compressedBytesAfter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "compressed_bytes_after_total",
			Help:      "Payload bytes leaving the compression step total",
		},
	)
)
