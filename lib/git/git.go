// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI for repository
// operations. Ralphtown uses git to inspect and commit the working
// trees its sessions operate on: status, recent history, branches,
// diff statistics, and commits. All commands target a specific
// repository directory via the -C flag, which is automatically
// injected by all Repository methods.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotARepository indicates the target directory is not inside a
// git working tree. Wrapped into errors returned by Repository
// operations; check with errors.Is.
var ErrNotARepository = errors.New("not a git repository")

// Repository represents a git repository at a specific directory. All
// operations target this directory via "git -C <dir>". There is no
// default directory — callers must always specify which repository
// they mean.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error
// messages on failure. A failure caused by the directory not being a
// git working tree wraps ErrNotARepository.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		stderrText := strings.TrimSpace(stderr.String())
		if strings.Contains(stderrText, "not a git repository") {
			return "", fmt.Errorf("git %s in %s: %w", strings.Join(args, " "), r.dir, ErrNotARepository)
		}
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, stderrText)
	}
	return stdout.String(), nil
}

// splitLines splits command output into lines, dropping the trailing
// empty line git leaves after the final newline.
func splitLines(output string) []string {
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return nil
	}
	return strings.Split(output, "\n")
}
