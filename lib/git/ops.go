// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the working-tree state of a repository.
type Status struct {
	// Branch is the current branch name, or "HEAD" when detached.
	Branch string `json:"branch"`

	// Ahead and Behind count commits relative to the upstream
	// branch. Both zero when there is no upstream.
	Ahead  int `json:"ahead"`
	Behind int `json:"behind"`

	// Files lists paths with uncommitted changes, each with its
	// two-letter porcelain status code.
	Files []FileStatus `json:"files"`
}

// FileStatus is one changed path from git status.
type FileStatus struct {
	// Code is the two-letter porcelain v1 status code (e.g. " M",
	// "??", "A ").
	Code string `json:"code"`
	Path string `json:"path"`
}

// Clean reports whether the working tree has no uncommitted changes.
func (s Status) Clean() bool {
	return len(s.Files) == 0
}

// Commit is one entry from the repository history.
type Commit struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	Subject string    `json:"subject"`
}

// Branch is one local branch.
type Branch struct {
	Name    string `json:"name"`
	Current bool   `json:"current"`
}

// FileDelta is the diff statistic for one file: lines added and
// removed relative to HEAD.
type FileDelta struct {
	Path    string `json:"path"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
}

// Status returns the current branch, ahead/behind counts, and the
// list of uncommitted changes.
func (r *Repository) Status(ctx context.Context) (Status, error) {
	output, err := r.Run(ctx, "status", "--porcelain=v1", "--branch")
	if err != nil {
		return Status{}, err
	}

	var status Status
	for _, line := range splitLines(output) {
		if strings.HasPrefix(line, "## ") {
			branch, ahead, behind := parseBranchHeader(strings.TrimPrefix(line, "## "))
			status.Branch = branch
			status.Ahead = ahead
			status.Behind = behind
			continue
		}
		if len(line) < 4 {
			continue
		}
		status.Files = append(status.Files, FileStatus{
			Code: line[:2],
			Path: line[3:],
		})
	}
	return status, nil
}

// parseBranchHeader extracts the branch name and ahead/behind counts
// from a porcelain "## " header line, e.g.
// "main...origin/main [ahead 2, behind 1]".
func parseBranchHeader(header string) (branch string, ahead, behind int) {
	// "## HEAD (no branch)" for detached heads.
	if strings.HasPrefix(header, "HEAD") {
		return "HEAD", 0, 0
	}

	branch = header
	if index := strings.Index(branch, "..."); index >= 0 {
		branch = branch[:index]
	}

	if open := strings.Index(header, "["); open >= 0 {
		counters := strings.TrimSuffix(header[open+1:], "]")
		for _, counter := range strings.Split(counters, ", ") {
			if value, ok := strings.CutPrefix(counter, "ahead "); ok {
				ahead, _ = strconv.Atoi(value)
			}
			if value, ok := strings.CutPrefix(counter, "behind "); ok {
				behind, _ = strconv.Atoi(value)
			}
		}
	}
	return branch, ahead, behind
}

// logFieldSeparator separates fields in the custom log format. An
// ASCII unit separator never appears in commit subjects the way "|"
// or tabs can.
const logFieldSeparator = "\x1f"

// Log returns the most recent commits, newest first.
func (r *Repository) Log(ctx context.Context, limit int) ([]Commit, error) {
	if limit <= 0 {
		limit = 20
	}
	format := strings.Join([]string{"%H", "%an", "%aI", "%s"}, logFieldSeparator)
	output, err := r.Run(ctx, "log", fmt.Sprintf("--max-count=%d", limit), "--pretty=format:"+format)
	if err != nil {
		// A repository with no commits yet has no log; report it as
		// empty rather than failing the caller.
		if strings.Contains(err.Error(), "does not have any commits yet") {
			return nil, nil
		}
		return nil, err
	}

	var commits []Commit
	for _, line := range splitLines(output) {
		fields := strings.Split(line, logFieldSeparator)
		if len(fields) != 4 {
			return nil, fmt.Errorf("unexpected log line: %q (expected 4 fields)", line)
		}
		date, err := time.Parse(time.RFC3339, fields[2])
		if err != nil {
			return nil, fmt.Errorf("parse commit date %q: %w", fields[2], err)
		}
		commits = append(commits, Commit{
			Hash:    fields[0],
			Author:  fields[1],
			Date:    date,
			Subject: fields[3],
		})
	}
	return commits, nil
}

// Branches returns the local branches, marking the current one.
func (r *Repository) Branches(ctx context.Context) ([]Branch, error) {
	output, err := r.Run(ctx, "branch", "--format=%(HEAD)%(refname:short)")
	if err != nil {
		return nil, err
	}

	var branches []Branch
	for _, line := range splitLines(output) {
		if line == "" {
			continue
		}
		branches = append(branches, Branch{
			Name:    line[1:],
			Current: line[0] == '*',
		})
	}
	return branches, nil
}

// DiffStat returns per-file added/removed line counts for uncommitted
// changes relative to HEAD.
func (r *Repository) DiffStat(ctx context.Context) ([]FileDelta, error) {
	output, err := r.Run(ctx, "diff", "HEAD", "--numstat")
	if err != nil {
		// HEAD does not exist before the first commit; nothing to
		// diff against.
		if strings.Contains(err.Error(), "unknown revision") || strings.Contains(err.Error(), "bad revision") {
			return nil, nil
		}
		return nil, err
	}

	var deltas []FileDelta
	for _, line := range splitLines(output) {
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("unexpected numstat line: %q (expected 3 tab-separated fields)", line)
		}
		// Binary files report "-" for both counts; record them as 0.
		added, _ := strconv.Atoi(fields[0])
		removed, _ := strconv.Atoi(fields[1])
		deltas = append(deltas, FileDelta{
			Path:    fields[2],
			Added:   added,
			Removed: removed,
		})
	}
	return deltas, nil
}

// Commit records a commit with the given message. When stageAll is
// true, all changes (including untracked files) are staged first with
// "git add -A". Returns the new commit's hash.
func (r *Repository) Commit(ctx context.Context, message string, stageAll bool) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("commit message must not be empty")
	}

	if stageAll {
		if _, err := r.Run(ctx, "add", "-A"); err != nil {
			return "", err
		}
	}

	if _, err := r.Run(ctx, "commit", "-m", message); err != nil {
		return "", err
	}

	hash, err := r.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(hash), nil
}

// Pull fetches and integrates changes from the upstream branch.
// Returns git's summary output.
func (r *Repository) Pull(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "pull")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// Push publishes the current branch to its upstream. Returns git's
// summary output.
func (r *Repository) Push(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "push")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// ResetHard discards all uncommitted changes, restoring the working
// tree to HEAD. Destructive; callers are expected to confirm with the
// user first.
func (r *Repository) ResetHard(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "reset", "--hard", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// Checkout switches the working tree to the named branch.
func (r *Repository) Checkout(ctx context.Context, branch string) (string, error) {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return "", fmt.Errorf("branch name must not be empty")
	}
	// Branch names never start with a dash; rejecting them keeps
	// user input from being parsed as a git flag.
	if strings.HasPrefix(branch, "-") {
		return "", fmt.Errorf("invalid branch name %q", branch)
	}
	output, err := r.Run(ctx, "checkout", branch)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}
