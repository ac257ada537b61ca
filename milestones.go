package main

import "time"

// Log vocabulary of the HyperExecute CLI. The log is treated as opaque
// text and searched case-insensitively, so casing here is cosmetic.
const (
	TermTrigger         = "Generating TraceID for tracking request"
	TermUploadStarted   = "Creating archive"
	TermUploadDone      = "Archive location"
	TermServerConnected = "Connection established"
	TermJobLink         = "Job Link:"
	TermFinished        = "goroutines have finished"
)

// Error substrings the CLI prints shortly after triggering when the job
// cannot proceed. Declaration order here matches ErrorKind priority.
const (
	TermInvalidCredentials = "Invalid user/key credentials"
	TermProjectNotFound    = "Project not found"
	TermYamlParseError     = "error unmarshalling yaml"
	TermYamlConfigError    = "invalid yaml configuration"
	TermYamlNotFound       = "yaml file not found"
)

// MilestonePredicate describes one bounded poll: the substring to wait for
// and how long to keep looking.
type MilestonePredicate struct {
	Term     string
	Timeout  time.Duration
	Interval time.Duration
}

// BudgetConfig holds the per-milestone poll budgets in milliseconds.
// Zero or missing values fall back to defaults: trigger detection and
// connection are quick, archive upload of a large project is not.
type BudgetConfig struct {
	TriggerTimeoutMs     int `json:"triggerTimeoutMs,omitempty"`
	TriggerPollMs        int `json:"triggerPollMs,omitempty"`
	UploadStartTimeoutMs int `json:"uploadStartTimeoutMs,omitempty"`
	UploadStartPollMs    int `json:"uploadStartPollMs,omitempty"`
	UploadDoneTimeoutMs  int `json:"uploadDoneTimeoutMs,omitempty"`
	UploadDonePollMs     int `json:"uploadDonePollMs,omitempty"`
	ConnectTimeoutMs     int `json:"connectTimeoutMs,omitempty"`
	ConnectPollMs        int `json:"connectPollMs,omitempty"`
	LinkTimeoutMs        int `json:"linkTimeoutMs,omitempty"`
	LinkPollMs           int `json:"linkPollMs,omitempty"`
	FinishedTimeoutMs    int `json:"finishedTimeoutMs,omitempty"`
	FinishedPollMs       int `json:"finishedPollMs,omitempty"`
	ErrorTimeoutMs       int `json:"errorTimeoutMs,omitempty"`
	ErrorPollMs          int `json:"errorPollMs,omitempty"`
}

// applyBudgetDefaults fills unset budgets with the stock values.
func applyBudgetDefaults(b *BudgetConfig) {
	def := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}
	def(&b.TriggerTimeoutMs, 10000)
	def(&b.TriggerPollMs, 1000)
	def(&b.UploadStartTimeoutMs, 30000)
	def(&b.UploadStartPollMs, 1000)
	def(&b.UploadDoneTimeoutMs, 180000)
	def(&b.UploadDonePollMs, 2000)
	def(&b.ConnectTimeoutMs, 60000)
	def(&b.ConnectPollMs, 1000)
	def(&b.LinkTimeoutMs, 30000)
	def(&b.LinkPollMs, 1000)
	def(&b.FinishedTimeoutMs, 5000)
	def(&b.FinishedPollMs, 500)
	def(&b.ErrorTimeoutMs, 5000)
	def(&b.ErrorPollMs, 500)
}

func budgetMs(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func (b *BudgetConfig) Trigger() MilestonePredicate {
	return MilestonePredicate{TermTrigger, budgetMs(b.TriggerTimeoutMs), budgetMs(b.TriggerPollMs)}
}

func (b *BudgetConfig) UploadStarted() MilestonePredicate {
	return MilestonePredicate{TermUploadStarted, budgetMs(b.UploadStartTimeoutMs), budgetMs(b.UploadStartPollMs)}
}

func (b *BudgetConfig) UploadDone() MilestonePredicate {
	return MilestonePredicate{TermUploadDone, budgetMs(b.UploadDoneTimeoutMs), budgetMs(b.UploadDonePollMs)}
}

func (b *BudgetConfig) ServerConnected() MilestonePredicate {
	return MilestonePredicate{TermServerConnected, budgetMs(b.ConnectTimeoutMs), budgetMs(b.ConnectPollMs)}
}

func (b *BudgetConfig) JobLink() MilestonePredicate {
	return MilestonePredicate{TermJobLink, budgetMs(b.LinkTimeoutMs), budgetMs(b.LinkPollMs)}
}

func (b *BudgetConfig) Finished() MilestonePredicate {
	return MilestonePredicate{TermFinished, budgetMs(b.FinishedTimeoutMs), budgetMs(b.FinishedPollMs)}
}

// errorPredicate builds a candidate for the error race; all candidates
// share the error budget.
func (b *BudgetConfig) errorPredicate(term string) MilestonePredicate {
	return MilestonePredicate{term, budgetMs(b.ErrorTimeoutMs), budgetMs(b.ErrorPollMs)}
}
