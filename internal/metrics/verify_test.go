// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistration(t *testing.T) {
	if ChallengesIssued == nil {
		t.Error("ChallengesIssued metric is nil")
	}
	if ChallengesVerified == nil {
		t.Error("ChallengesVerified metric is nil")
	}
	if ChallengeDuration == nil {
		t.Error("ChallengeDuration metric is nil")
	}

	if WorkspacesCreated == nil {
		t.Error("WorkspacesCreated metric is nil")
	}
	if WorkspacesActive == nil {
		t.Error("WorkspacesActive metric is nil")
	}
	if WorkspacesExpired == nil {
		t.Error("WorkspacesExpired metric is nil")
	}
	if ParticipantsAdmitted == nil {
		t.Error("ParticipantsAdmitted metric is nil")
	}

	if CryptoOperations == nil {
		t.Error("CryptoOperations metric is nil")
	}

	if OperationsSubmitted == nil {
		t.Error("OperationsSubmitted metric is nil")
	}

	if KeyRotations == nil {
		t.Error("KeyRotations metric is nil")
	}
	if CommitmentsPublished == nil {
		t.Error("CommitmentsPublished metric is nil")
	}
}

func TestMetricsIncrement(t *testing.T) {
	ChallengesIssued.Inc()
	ChallengesVerified.WithLabelValues("success").Inc()
	ChallengeDuration.Observe(0.05)

	WorkspacesCreated.Inc()
	WorkspacesActive.Inc()
	ParticipantsAdmitted.WithLabelValues("creator").Inc()

	CryptoOperations.WithLabelValues("encrypt", "aes-256-gcm").Inc()
	OperationsSubmitted.WithLabelValues("insert", "accepted").Inc()
	KeyRotations.Inc()

	if count := testutil.CollectAndCount(ChallengesIssued); count == 0 {
		t.Error("ChallengesIssued has no metrics collected")
	}
	if count := testutil.CollectAndCount(WorkspacesCreated); count == 0 {
		t.Error("WorkspacesCreated has no metrics collected")
	}
	if count := testutil.CollectAndCount(OperationsSubmitted); count == 0 {
		t.Error("OperationsSubmitted has no metrics collected")
	}
}
