// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsSubmitted tracks SubmitOperation calls by outcome.
	OperationsSubmitted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "operations",
			Name:      "submitted_total",
			Help:      "Total number of operations submitted to a workspace",
		},
		[]string{"type", "status"}, // insert/delete, accepted/unauthorized/rate_limited
	)

	// OperationRateLimitRejections tracks operations rejected by the
	// per-participant token bucket.
	OperationRateLimitRejections = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "operations",
			Name:      "rate_limit_rejections_total",
			Help:      "Total number of operations rejected by the rate limiter",
		},
	)

	// OperationEncryptedSize tracks the ciphertext size of submitted
	// operations.
	OperationEncryptedSize = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "operations",
			Name:      "encrypted_size_bytes",
			Help:      "Size of an operation's encrypted content in bytes",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 10), // 16B to 4MB
		},
	)
)
