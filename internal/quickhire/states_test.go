package quickhire

import (
	"testing"

	"github.com/quickhire-gh/quickhire/pkg/models"
	"github.com/stretchr/testify/assert"
)

var allStatuses = []string{
	models.JobStatusPending, models.JobStatusQuoted, models.JobStatusAccepted,
	models.JobStatusFunded, models.JobStatusWorkerOnWay, models.JobStatusWorkerArrived,
	models.JobStatusInProgress, models.JobStatusCompleted, models.JobStatusApproved,
	models.JobStatusDisputed, models.JobStatusCancelled, models.JobStatusExpired,
}

func TestCanTransition_MainPath(t *testing.T) {
	path := []string{
		models.JobStatusPending, models.JobStatusQuoted, models.JobStatusAccepted,
		models.JobStatusFunded, models.JobStatusWorkerOnWay, models.JobStatusWorkerArrived,
		models.JobStatusInProgress, models.JobStatusCompleted, models.JobStatusApproved,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, CanTransition(path[i], path[i+1]), "%s -> %s", path[i], path[i+1])
	}
}

func TestCanTransition_Illegal(t *testing.T) {
	tests := []struct{ from, to string }{
		{models.JobStatusPending, models.JobStatusFunded},
		{models.JobStatusQuoted, models.JobStatusWorkerOnWay},
		{models.JobStatusAccepted, models.JobStatusApproved},
		{models.JobStatusFunded, models.JobStatusCompleted},
		{models.JobStatusCompleted, models.JobStatusInProgress},
		{models.JobStatusApproved, models.JobStatusPending},
		{models.JobStatusCancelled, models.JobStatusPending},
		{models.JobStatusExpired, models.JobStatusQuoted},
		{models.JobStatusAccepted, models.JobStatusExpired}, // acceptance supersedes expiry
		{models.JobStatusFunded, models.JobStatusExpired},
	}
	for _, tt := range tests {
		assert.False(t, CanTransition(tt.from, tt.to), "%s -> %s should be illegal", tt.from, tt.to)
	}
}

func TestCanTransition_NoSelfLoops(t *testing.T) {
	for _, s := range allStatuses {
		assert.False(t, CanTransition(s, s), "self transition %s", s)
	}
}

func TestCanTransition_ExpiryOnlyFromOpenStatuses(t *testing.T) {
	for _, s := range allStatuses {
		want := s == models.JobStatusPending || s == models.JobStatusQuoted
		assert.Equal(t, want, CanTransition(s, models.JobStatusExpired), "from %s", s)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(models.JobStatusCancelled))
	assert.True(t, Terminal(models.JobStatusExpired))
	assert.False(t, Terminal(models.JobStatusApproved)) // dispute grace window
	assert.False(t, Terminal(models.JobStatusPending))
}
