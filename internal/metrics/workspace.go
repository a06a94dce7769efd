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
	// WorkspacesCreated tracks total workspaces created.
	WorkspacesCreated = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workspaces",
			Name:      "created_total",
			Help:      "Total number of workspaces created",
		},
	)

	// WorkspacesActive tracks currently active (non-expired) workspaces.
	WorkspacesActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "workspaces",
			Name:      "active",
			Help:      "Number of currently active workspaces",
		},
	)

	// WorkspacesExpired tracks workspaces that reached the Expired state.
	WorkspacesExpired = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workspaces",
			Name:      "expired_total",
			Help:      "Total number of workspaces that reached the expired state",
		},
	)

	// ParticipantsAdmitted tracks successful Admit calls.
	ParticipantsAdmitted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workspaces",
			Name:      "participants_admitted_total",
			Help:      "Total number of participants admitted to a workspace",
		},
		[]string{"role"}, // creator, editor
	)

	// ParticipantsRejected tracks Admit calls that failed (workspace full,
	// or no longer accepting joins because it is expiring or expired).
	ParticipantsRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workspaces",
			Name:      "participants_rejected_total",
			Help:      "Total number of rejected admission attempts",
		},
		[]string{"reason"}, // full, invalid_state
	)

	// WorkspaceLifetime tracks how long a workspace lived from creation to
	// its terminal state, in seconds.
	WorkspaceLifetime = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workspaces",
			Name:      "lifetime_seconds",
			Help:      "Workspace lifetime from creation to expiry in seconds",
			Buckets:   prometheus.ExponentialBuckets(60, 2, 12), // 1m to ~34h
		},
	)
)
