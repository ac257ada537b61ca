package main

import (
	"context"
	"sync"
)

// ErrorKind classifies the configuration errors the CLI can print shortly
// after a job is triggered. Declaration order is priority order: when the
// log somehow contains several, the lowest-valued kind wins.
type ErrorKind int

const (
	ErrInvalidCredentials ErrorKind = iota
	ErrProjectNotFound
	ErrYamlParse
	ErrYamlConfig
	ErrYamlNotFound
	ErrNone
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidCredentials:
		return "invalid_credentials"
	case ErrProjectNotFound:
		return "project_not_found"
	case ErrYamlParse:
		return "yaml_parse_error"
	case ErrYamlConfig:
		return "yaml_config_error"
	case ErrYamlNotFound:
		return "yaml_not_found"
	}
	return "none"
}

// Remediation returns the operator-facing message for a detected error.
func (k ErrorKind) Remediation() string {
	switch k {
	case ErrInvalidCredentials:
		return "Invalid user/key credentials. Check LT_USERNAME and LT_ACCESS_KEY (or the credentials in wells.config.json) and trigger the job again."
	case ErrProjectNotFound:
		return "Project not found. Verify the project configured for this job exists in your LambdaTest account, then trigger the job again."
	case ErrYamlParse:
		return "The HyperExecute YAML could not be parsed. Fix the YAML syntax and trigger the job again."
	case ErrYamlConfig:
		return "The HyperExecute YAML is not configured correctly. Review the required fields and trigger the job again."
	case ErrYamlNotFound:
		return "The HyperExecute YAML file was not found. Check the cli.configFile path in wells.config.json and trigger the job again."
	}
	return ""
}

// errorCandidates returns one watch predicate per ErrorKind, indexed by
// kind, all sharing the configured error budget.
func errorCandidates(b *BudgetConfig) []MilestonePredicate {
	return []MilestonePredicate{
		ErrInvalidCredentials: b.errorPredicate(TermInvalidCredentials),
		ErrProjectNotFound:    b.errorPredicate(TermProjectNotFound),
		ErrYamlParse:          b.errorPredicate(TermYamlParseError),
		ErrYamlConfig:         b.errorPredicate(TermYamlConfigError),
		ErrYamlNotFound:       b.errorPredicate(TermYamlNotFound),
	}
}

// detectFirstError runs one watcher per candidate concurrently and waits
// for every one to settle before deciding. A candidate that times out
// quickly can settle before a slower one that actually matches, so settle
// order carries no meaning; every watcher has a hard timeout, which keeps
// the full wait bounded. The watchers only read the log, so they are safe
// to run against the same file at once.
func detectFirstError(ctx context.Context, w *LogWatcher, candidates []MilestonePredicate) ErrorKind {
	matched := make([]bool, len(candidates))
	var wg sync.WaitGroup
	for i, p := range candidates {
		wg.Add(1)
		go func(i int, p MilestonePredicate) {
			defer wg.Done()
			matched[i] = w.Found(ctx, p)
		}(i, p)
	}
	wg.Wait()

	for i, hit := range matched {
		if hit {
			return ErrorKind(i)
		}
	}
	return ErrNone
}
