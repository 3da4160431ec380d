package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/sonicsync/internal/shared"
)

// SyncStatus is the lifecycle state of a [SyncRun].
type SyncStatus string

const (
	SyncPending   SyncStatus = "pending"
	SyncRunning   SyncStatus = "running"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)

func (s SyncStatus) valid() bool {
	switch s {
	case SyncPending, SyncRunning, SyncCompleted, SyncFailed:
		return true
	}
	return false
}

// SyncRun is one execution of a playlist sync to AzuraCast.
//
// Source names where the track list came from: an M3U path, a Subsonic playlist id or a search query.
type SyncRun struct {
	record

	PlaylistName   string
	Source         string
	Status         SyncStatus
	TracksTotal    int
	TracksUploaded int
	TracksLinked   int
	TracksFailed   int
	ErrorMessage   string
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

func NewSyncRun(sequence int, playlistName, source string) *SyncRun {
	return &SyncRun{record: newRecord(sequence), PlaylistName: playlistName, Source: source, Status: SyncPending}
}

func (s *SyncRun) Validate() error {
	switch {
	case strings.TrimSpace(s.PlaylistName) == "":
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	case strings.TrimSpace(s.Source) == "":
		return fmt.Errorf("%w: source is required", shared.ErrInvalidInput)
	case !s.Status.valid():
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidInput, s.Status)
	case s.TracksTotal < 0 || s.TracksUploaded < 0 || s.TracksLinked < 0 || s.TracksFailed < 0:
		return fmt.Errorf("%w: track counters must not be negative", shared.ErrInvalidInput)
	}
	return nil
}

// Start marks the run as running with total tracks to process.
func (s *SyncRun) Start(total int) {
	now := time.Now().UTC()
	s.Status = SyncRunning
	s.TracksTotal = total
	s.StartedAt = &now
}

func (s *SyncRun) Complete() {
	now := time.Now().UTC()
	s.Status = SyncCompleted
	s.CompletedAt = &now
}

// Fail marks the run as failed and keeps err's message.
func (s *SyncRun) Fail(err error) {
	now := time.Now().UTC()
	s.Status = SyncFailed
	s.CompletedAt = &now
	if err != nil {
		s.ErrorMessage = err.Error()
	}
}

// Done reports whether the run reached a terminal state.
func (s *SyncRun) Done() bool {
	return s.Status == SyncCompleted || s.Status == SyncFailed
}

// Duration is the elapsed time between start and completion, or zero while either is unset.
func (s *SyncRun) Duration() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(*s.StartedAt)
}
