package main

import (
	"context"
	"errors"
	"sync"
)

// Status messages returned by Run/Advance. The controller shows these to
// the user verbatim, so each lifecycle event has one fixed wording. The
// link-found status is the extracted URL itself and has no constant here.
const (
	msgNotStarted      = "Job has not started: the trigger milestone was not observed. Trigger the job again with 'wells run'."
	msgTriggered       = "Job triggered: the CLI is generating a TraceID for the tracking request."
	msgErrorCleared    = "No configuration errors detected. Waiting for the project archive upload to begin."
	msgUploadStarted   = "Project archive is being created for upload."
	msgUploadDone      = "Project archive uploaded."
	msgServerConnected = "Connection established with the HyperExecute server. Waiting for the job link."
	msgTerminated      = "Job tracking finished without producing a job link. Inspect the HyperExecute dashboard and the CLI log manually."
	msgStillRunning    = "Job is still running; no new milestone yet. Check again shortly."
	msgCannotAnalyze   = "Could not analyze the CLI log. The last reported status still stands; check again shortly."
	msgSuperseded      = "A newer run replaced this one; this status no longer applies."
)

// ErrNotStarted is returned by Advance when no Run has happened yet. It is
// the single precondition error; every other failure degrades to a status
// message so the tracker never crashes its caller.
var ErrNotStarted = errors.New("no job run in progress: call Run first")

// Tracker is the per-job state machine. It owns one JobRunState at a time
// and advances at most one stage per Advance call, so every call returns
// within the budget of the single watcher it runs. It holds no internal
// loop: progress depends entirely on the external controller calling
// Advance repeatedly.
type Tracker struct {
	cfg      *ResolvedConfig
	watcher  *LogWatcher
	launcher Launcher
	logger   *RunLogger

	mu         sync.Mutex
	state      *JobRunState
	generation int
	runCtx     context.Context
	cancelRun  context.CancelFunc
}

func NewTracker(cfg *ResolvedConfig, launcher Launcher, logger *RunLogger) *Tracker {
	return &Tracker{
		cfg:      cfg,
		watcher:  NewLogWatcher(cfg.LogPath()),
		launcher: launcher,
		logger:   logger,
	}
}

// Run triggers a fresh job. Any in-flight watchers from a previous run are
// cancelled (cancel-and-replace), the run state is replaced with an
// all-false record, the CLI is launched, and one short bounded poll looks
// for the trigger milestone. Run never waits for the job itself.
func (t *Tracker) Run(ctx context.Context) string {
	t.mu.Lock()
	if t.cancelRun != nil {
		t.cancelRun()
	}
	runCtx, cancel := context.WithCancel(context.Background())
	t.runCtx = runCtx
	t.cancelRun = cancel
	t.state = NewJobRunState()
	t.generation++
	gen := t.generation
	t.mu.Unlock()

	creds := t.cfg.Credentials()
	if err := t.launcher.Launch(runCtx, creds, t.cfg.Config.CLI.ConfigFile); err != nil {
		// Launcher failures surface through the log side channel only:
		// without a process, the trigger milestone never appears.
		t.logger.Warning("launcher: " + err.Error())
	} else {
		t.logger.LaunchStart(t.cfg.Config.CLI.Binary, t.cfg.LogPath())
	}

	if t.watch(ctx, runCtx, t.cfg.Budgets().Trigger()) == WatchFound {
		if !t.commit(gen, func(s *JobRunState) { s.Triggered = true }) {
			return msgSuperseded
		}
		t.logger.MilestoneFound("trigger", TermTrigger)
		return msgTriggered
	}
	if !t.current(gen) {
		return msgSuperseded
	}
	return msgNotStarted
}

// Advance performs at most one lifecycle step and returns a status
// message. It never mutates state on an unexpected I/O failure, so a
// caller may retry freely after any message.
func (t *Tracker) Advance(ctx context.Context) (string, error) {
	t.mu.Lock()
	if t.state == nil {
		t.mu.Unlock()
		return "", ErrNotStarted
	}
	st := *t.state
	gen := t.generation
	runCtx := t.runCtx
	t.mu.Unlock()

	budgets := t.cfg.Budgets()

	// Terminal fast paths: no polling, idempotent.
	if st.JobLinkFound {
		return st.CachedLink, nil
	}
	if st.TerminatedWithoutLink {
		return msgTerminated, nil
	}

	// Not triggered yet: one more bounded look. On a miss the caller must
	// re-invoke Run, not just Advance.
	if !st.Triggered {
		if t.watch(ctx, runCtx, budgets.Trigger()) != WatchFound {
			if !t.current(gen) {
				return msgSuperseded, nil
			}
			return msgNotStarted, nil
		}
		if !t.commit(gen, func(s *JobRunState) { s.Triggered = true }) {
			return msgSuperseded, nil
		}
		t.logger.MilestoneFound("trigger", TermTrigger)
		return msgTriggered, nil
	}

	// Error race. Flags are never reset here, only Run resets, so a
	// reported configuration error keeps the run parked until the user
	// retriggers.
	justCleared := false
	if !st.ErrorCleared {
		kind := t.raceErrors(ctx, runCtx, budgets)
		if !t.current(gen) {
			return msgSuperseded, nil
		}
		if kind != ErrNone {
			t.logger.ErrorDetected(kind.String())
			return kind.Remediation(), nil
		}
		if !t.commit(gen, func(s *JobRunState) { s.ErrorCleared = true }) {
			return msgSuperseded, nil
		}
		st.ErrorCleared = true
		justCleared = true
	}

	// One bounded watcher for the first unsatisfied milestone.
	switch {
	case !st.UploadStarted:
		if t.watch(ctx, runCtx, budgets.UploadStarted()) == WatchFound {
			if !t.commit(gen, func(s *JobRunState) { s.UploadStarted = true }) {
				return msgSuperseded, nil
			}
			t.logger.MilestoneFound("upload_started", TermUploadStarted)
			return msgUploadStarted, nil
		}
	case !st.UploadDone:
		if t.watch(ctx, runCtx, budgets.UploadDone()) == WatchFound {
			if !t.commit(gen, func(s *JobRunState) { s.UploadDone = true }) {
				return msgSuperseded, nil
			}
			t.logger.MilestoneFound("upload_done", TermUploadDone)
			return msgUploadDone, nil
		}
	case !st.ServerConnected:
		if t.watch(ctx, runCtx, budgets.ServerConnected()) == WatchFound {
			if !t.commit(gen, func(s *JobRunState) { s.ServerConnected = true }) {
				return msgSuperseded, nil
			}
			t.logger.MilestoneFound("server_connected", TermServerConnected)
			return msgServerConnected, nil
		}
	default:
		if t.watch(ctx, runCtx, budgets.JobLink()) == WatchFound {
			snapshot, err := readLogSnapshot(t.watcher.LogPath())
			if err != nil {
				return msgCannotAnalyze, nil
			}
			link := extractJobLink(snapshot)
			if link == "" {
				// Label seen but the URL is not complete yet (mid-write).
				return msgStillRunning, nil
			}
			if !t.commit(gen, func(s *JobRunState) {
				s.JobLinkFound = true
				s.CachedLink = link
			}) {
				return msgSuperseded, nil
			}
			t.logger.LinkFound(link)
			return link, nil
		}
	}

	if !t.current(gen) {
		return msgSuperseded, nil
	}

	// The call that cleared the error race did advance the state machine,
	// so report that instead of probing for termination.
	if justCleared {
		return msgErrorCleared, nil
	}

	// Nothing advanced: distinguish "finished without a link" from "still
	// running".
	if t.watch(ctx, runCtx, budgets.Finished()) == WatchFound {
		if !t.commit(gen, func(s *JobRunState) { s.TerminatedWithoutLink = true }) {
			return msgSuperseded, nil
		}
		t.logger.MilestoneFound("tracking_finished", TermFinished)
		return msgTerminated, nil
	}
	if !t.current(gen) {
		return msgSuperseded, nil
	}
	return msgStillRunning, nil
}

// Stage reports the current lifecycle stage.
func (t *Tracker) Stage() Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return StageNotTriggered
	}
	return t.state.Stage()
}

// Link returns the cached job link, or "" before LINK_FOUND.
func (t *Tracker) Link() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return ""
	}
	return t.state.CachedLink
}

// Cancel aborts any in-flight watchers of the current run.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelRun != nil {
		t.cancelRun()
	}
}

// watch runs one bounded watcher under both the caller's context and the
// owning run's context, so a replacing Run aborts it mid-poll.
func (t *Tracker) watch(ctx, runCtx context.Context, p MilestonePredicate) WatchResult {
	wctx, cancel := joinContexts(ctx, runCtx)
	defer cancel()
	return t.watcher.Watch(wctx, p)
}

func (t *Tracker) raceErrors(ctx, runCtx context.Context, budgets *BudgetConfig) ErrorKind {
	wctx, cancel := joinContexts(ctx, runCtx)
	defer cancel()
	return detectFirstError(wctx, t.watcher, errorCandidates(budgets))
}

// commit applies a state mutation only if the run has not been replaced
// while a watcher was in flight; a stale run must never touch fresh state.
func (t *Tracker) commit(gen int, mutate func(*JobRunState)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return false
	}
	mutate(t.state)
	return true
}

func (t *Tracker) current(gen int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return gen == t.generation
}

// joinContexts derives a context that is cancelled when either parent is.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
