package main

import (
	"testing"
	"time"
)

func TestApplyBudgetDefaults(t *testing.T) {
	b := &BudgetConfig{}
	applyBudgetDefaults(b)

	if b.TriggerTimeoutMs != 10000 || b.TriggerPollMs != 1000 {
		t.Errorf("trigger defaults wrong: %d/%d", b.TriggerTimeoutMs, b.TriggerPollMs)
	}
	if b.UploadDoneTimeoutMs != 180000 {
		t.Errorf("upload done timeout default wrong: %d", b.UploadDoneTimeoutMs)
	}
	if b.ErrorTimeoutMs != 5000 || b.ErrorPollMs != 500 {
		t.Errorf("error defaults wrong: %d/%d", b.ErrorTimeoutMs, b.ErrorPollMs)
	}
}

func TestApplyBudgetDefaults_KeepsOverrides(t *testing.T) {
	b := &BudgetConfig{TriggerTimeoutMs: 1234, LinkPollMs: 77}
	applyBudgetDefaults(b)

	if b.TriggerTimeoutMs != 1234 {
		t.Errorf("override lost: %d", b.TriggerTimeoutMs)
	}
	if b.LinkPollMs != 77 {
		t.Errorf("override lost: %d", b.LinkPollMs)
	}
	if b.TriggerPollMs != 1000 {
		t.Errorf("untouched field should default: %d", b.TriggerPollMs)
	}
}

func TestPredicateTerms(t *testing.T) {
	b := &BudgetConfig{}
	applyBudgetDefaults(b)

	tests := []struct {
		name string
		p    MilestonePredicate
		term string
	}{
		{"trigger", b.Trigger(), TermTrigger},
		{"upload started", b.UploadStarted(), TermUploadStarted},
		{"upload done", b.UploadDone(), TermUploadDone},
		{"server connected", b.ServerConnected(), TermServerConnected},
		{"job link", b.JobLink(), TermJobLink},
		{"finished", b.Finished(), TermFinished},
	}
	for _, tt := range tests {
		if tt.p.Term != tt.term {
			t.Errorf("%s predicate term = %q, want %q", tt.name, tt.p.Term, tt.term)
		}
		if tt.p.Timeout <= 0 || tt.p.Interval <= 0 {
			t.Errorf("%s predicate has unset budget: %v/%v", tt.name, tt.p.Timeout, tt.p.Interval)
		}
	}
}

func TestBudgetMs(t *testing.T) {
	if got := budgetMs(1500); got != 1500*time.Millisecond {
		t.Errorf("budgetMs(1500) = %v", got)
	}
}
