// Package runinfo captures host/CI metadata that gets embedded in grading
// reports so collected submissions can be traced back to the machine and
// pipeline that produced them.
package runinfo

import (
	"os"
	"strings"
)

// BasicInfo is the run metadata attached to reports.
type BasicInfo struct {
	Hostname   string `json:"hostname,omitempty"`
	CI         bool   `json:"ci,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Repository string `json:"repository,omitempty"`
	Branch     string `json:"branch,omitempty"`
	Commit     string `json:"commit,omitempty"`
	RunID      string `json:"run_id,omitempty"`
	Actor      string `json:"actor,omitempty"`
}

// FromEnv builds run metadata from the environment. Returns nil when
// nothing useful is present.
func FromEnv() *BasicInfo {
	info := BasicInfo{}
	if host, err := os.Hostname(); err == nil {
		info.Hostname = host
	}
	if isTruthy(env("GITHUB_ACTIONS")) {
		info.CI = true
		info.Provider = "github_actions"
		info.Repository = env("GITHUB_REPOSITORY")
		info.Branch = envFirst("GITHUB_HEAD_REF", "GITHUB_REF_NAME")
		info.Commit = env("GITHUB_SHA")
		info.RunID = env("GITHUB_RUN_ID")
		info.Actor = env("GITHUB_ACTOR")
	} else if isTruthy(env("CI")) {
		info.CI = true
		info.Provider = "generic"
		info.Branch = envFirst("CI_COMMIT_REF_NAME", "BRANCH_NAME", "GIT_BRANCH")
		info.Commit = envFirst("CI_COMMIT_SHA", "GIT_COMMIT")
		info.RunID = envFirst("CI_PIPELINE_ID", "BUILD_ID")
	}
	if info == (BasicInfo{}) {
		return nil
	}
	return &info
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envFirst(keys ...string) string {
	for _, key := range keys {
		if value := env(key); value != "" {
			return value
		}
	}
	return ""
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
