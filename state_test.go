package main

import "testing"

func TestJobRunState_StageDerivation(t *testing.T) {
	tests := []struct {
		name  string
		state JobRunState
		want  Stage
	}{
		{"fresh", JobRunState{}, StageNotTriggered},
		{"triggered", JobRunState{Triggered: true}, StageTriggered},
		{"error cleared", JobRunState{Triggered: true, ErrorCleared: true}, StageErrorCleared},
		{
			"upload started",
			JobRunState{Triggered: true, ErrorCleared: true, UploadStarted: true},
			StageUploadStarted,
		},
		{
			"upload done",
			JobRunState{Triggered: true, ErrorCleared: true, UploadStarted: true, UploadDone: true},
			StageUploadDone,
		},
		{
			"server connected",
			JobRunState{Triggered: true, ErrorCleared: true, UploadStarted: true, UploadDone: true, ServerConnected: true},
			StageServerConnected,
		},
		{
			"link found",
			JobRunState{Triggered: true, ErrorCleared: true, UploadStarted: true, UploadDone: true, ServerConnected: true, JobLinkFound: true, CachedLink: "https://example.com/job/1"},
			StageLinkFound,
		},
		{
			"terminated early",
			JobRunState{Triggered: true, ErrorCleared: true, TerminatedWithoutLink: true},
			StageTerminated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Stage(); got != tt.want {
				t.Errorf("Stage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJobRunState_Terminal(t *testing.T) {
	if (&JobRunState{Triggered: true, ServerConnected: true}).Terminal() {
		t.Error("mid-run state must not be terminal")
	}
	if !(&JobRunState{JobLinkFound: true, CachedLink: "https://example.com"}).Terminal() {
		t.Error("link found must be terminal")
	}
	if !(&JobRunState{Triggered: true, TerminatedWithoutLink: true}).Terminal() {
		t.Error("terminated without link must be terminal")
	}
}

func TestStage_String(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageNotTriggered, "not_triggered"},
		{StageTriggered, "triggered"},
		{StageErrorCleared, "error_cleared"},
		{StageUploadStarted, "upload_started"},
		{StageUploadDone, "upload_done"},
		{StageServerConnected, "server_connected"},
		{StageLinkFound, "link_found"},
		{StageTerminated, "terminated_without_link"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", tt.stage, got, tt.want)
		}
	}
}
