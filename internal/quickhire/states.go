package quickhire

import "github.com/quickhire-gh/quickhire/pkg/models"

// transitions is the lifecycle table. An attempted transition absent from
// this table fails with ErrStateConflict and leaves the job unchanged.
//
// Disputed is reachable from funded through completed, and from approved
// within the grace window (enforced in RaiseDispute, not here). The edges
// out of disputed belong to dispute resolutions only: back to a terminal
// state, or resuming the status the job held before the dispute was
// raised. Party operations on a disputed job are rejected upstream.
var transitions = map[string][]string{
	models.JobStatusPending: {
		models.JobStatusQuoted, models.JobStatusAccepted,
		models.JobStatusCancelled, models.JobStatusExpired,
	},
	models.JobStatusQuoted: {
		models.JobStatusAccepted, models.JobStatusCancelled, models.JobStatusExpired,
	},
	models.JobStatusAccepted: {
		models.JobStatusFunded, models.JobStatusCancelled,
	},
	models.JobStatusFunded: {
		models.JobStatusWorkerOnWay, models.JobStatusDisputed, models.JobStatusCancelled,
	},
	models.JobStatusWorkerOnWay: {
		models.JobStatusWorkerArrived, models.JobStatusDisputed, models.JobStatusCancelled,
	},
	models.JobStatusWorkerArrived: {
		models.JobStatusInProgress, models.JobStatusDisputed,
	},
	models.JobStatusInProgress: {
		models.JobStatusCompleted, models.JobStatusDisputed,
	},
	models.JobStatusCompleted: {
		models.JobStatusApproved, models.JobStatusDisputed,
	},
	models.JobStatusApproved: {
		models.JobStatusDisputed,
	},
	models.JobStatusDisputed: {
		models.JobStatusApproved, models.JobStatusCancelled,
		models.JobStatusFunded, models.JobStatusWorkerOnWay,
		models.JobStatusWorkerArrived, models.JobStatusInProgress,
	},
	// cancelled and expired are terminal.
}

// CanTransition reports whether the lifecycle table permits from → to.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a job status admits no further transitions
// other than the dispute grace window on approved.
func Terminal(status string) bool {
	switch status {
	case models.JobStatusCancelled, models.JobStatusExpired:
		return true
	}
	return false
}
