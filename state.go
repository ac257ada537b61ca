package main

// Stage is the tracker's position in the job lifecycle. Each stage implies
// all of its predecessors. StageLinkFound is the terminal success;
// StageTerminated is the parallel terminal failure, reachable any time
// after StageTriggered when tracking finishes before a link appears.
type Stage int

const (
	StageNotTriggered Stage = iota
	StageTriggered
	StageErrorCleared
	StageUploadStarted
	StageUploadDone
	StageServerConnected
	StageLinkFound
	StageTerminated
)

func (s Stage) String() string {
	switch s {
	case StageNotTriggered:
		return "not_triggered"
	case StageTriggered:
		return "triggered"
	case StageErrorCleared:
		return "error_cleared"
	case StageUploadStarted:
		return "upload_started"
	case StageUploadDone:
		return "upload_done"
	case StageServerConnected:
		return "server_connected"
	case StageLinkFound:
		return "link_found"
	case StageTerminated:
		return "terminated_without_link"
	}
	return "unknown"
}

// JobRunState is the per-run milestone record. Flags only ever go
// false->true within a run; a new run replaces the whole record rather
// than clearing fields, so stale pointers can never see a reset.
type JobRunState struct {
	Triggered             bool
	ErrorCleared          bool
	UploadStarted         bool
	UploadDone            bool
	ServerConnected       bool
	JobLinkFound          bool
	TerminatedWithoutLink bool

	// CachedLink is populated exactly once, when JobLinkFound flips.
	CachedLink string
}

func NewJobRunState() *JobRunState {
	return &JobRunState{}
}

// Stage derives the lifecycle stage from the flags.
func (s *JobRunState) Stage() Stage {
	switch {
	case s.TerminatedWithoutLink:
		return StageTerminated
	case s.JobLinkFound:
		return StageLinkFound
	case s.ServerConnected:
		return StageServerConnected
	case s.UploadDone:
		return StageUploadDone
	case s.UploadStarted:
		return StageUploadStarted
	case s.ErrorCleared:
		return StageErrorCleared
	case s.Triggered:
		return StageTriggered
	}
	return StageNotTriggered
}

// Terminal reports whether the run reached either terminal stage.
func (s *JobRunState) Terminal() bool {
	return s.JobLinkFound || s.TerminatedWithoutLink
}
