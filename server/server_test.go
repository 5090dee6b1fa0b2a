// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/ralphtown/ralphtown/hub"
	"github.com/ralphtown/ralphtown/store"
)

// testEnv bundles one API server with direct handles on its backing
// store and hub, so tests can seed state and publish events without
// going through HTTP.
type testEnv struct {
	server *httptest.Server
	store  *store.Store
	hub    *hub.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.Open(store.Config{
		Path: filepath.Join(t.TempDir(), "ralphtown.db"),
	})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	h := hub.New(hub.Options{})
	srv, err := New(Options{Store: st, Hub: h})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	httpServer := httptest.NewServer(srv.Handler())
	t.Cleanup(httpServer.Close)

	return &testEnv{server: httpServer, store: st, hub: h}
}

// do issues one JSON request against the test server and returns the
// response. A nil body sends no payload.
func (env *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		payload = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, env.server.URL+path, payload)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	response, err := env.server.Client().Do(request)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { response.Body.Close() })
	return response
}

func decodeBody(t *testing.T, response *http.Response, destination any) {
	t.Helper()
	if err := json.NewDecoder(response.Body).Decode(destination); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}

// errorCode extracts the code from an error envelope response.
func errorCode(t *testing.T, response *http.Response) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeBody(t, response, &envelope)
	return envelope.Error.Code
}

// initGitRepo creates a git repository with one commit and returns its
// path.
func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0644); err != nil {
		t.Fatalf("writing README: %v", err)
	}
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "initial commit")
	return dir
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, output)
	}
}

// addRepo registers a git repository through the API and returns it.
func (env *testEnv) addRepo(t *testing.T, path string) store.Repo {
	t.Helper()
	response := env.do(t, http.MethodPost, "/api/repos", addRepoRequest{Path: path})
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("adding repo: status %d", response.StatusCode)
	}
	var repo store.Repo
	decodeBody(t, response, &repo)
	return repo
}

// createSession creates a session through the API and returns it.
func (env *testEnv) createSession(t *testing.T, repoID uuid.UUID, name string) store.Session {
	t.Helper()
	response := env.do(t, http.MethodPost, "/api/sessions",
		createSessionRequest{RepoID: repoID, Name: name})
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("creating session: status %d", response.StatusCode)
	}
	var session store.Session
	decodeBody(t, response, &session)
	return session
}

func TestHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	response := env.do(t, http.MethodGet, "/api/health", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}
	var body map[string]string
	decodeBody(t, response, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestRepoRegistration(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	dir := initGitRepo(t)

	repo := env.addRepo(t, dir)
	if repo.Name != filepath.Base(repo.Path) {
		t.Errorf("Name = %q, want directory name %q", repo.Name, filepath.Base(repo.Path))
	}

	// Listing returns the registered repo.
	response := env.do(t, http.MethodGet, "/api/repos", nil)
	var repos []store.Repo
	decodeBody(t, response, &repos)
	if len(repos) != 1 || repos[0].ID != repo.ID {
		t.Fatalf("list = %+v, want the one registered repo", repos)
	}

	// And it fetches back by id.
	response = env.do(t, http.MethodGet, "/api/repos/"+repo.ID.String(), nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("get: status = %d, want 200", response.StatusCode)
	}
	var fetched store.Repo
	decodeBody(t, response, &fetched)
	if fetched != repo {
		t.Errorf("fetched = %+v, want %+v", fetched, repo)
	}

	// Registering the same path again conflicts.
	response = env.do(t, http.MethodPost, "/api/repos", addRepoRequest{Path: dir})
	if response.StatusCode != http.StatusConflict {
		t.Errorf("duplicate registration: status = %d, want 409", response.StatusCode)
	} else if code := errorCode(t, response); code != "CONFLICT" {
		t.Errorf("duplicate registration: code = %q, want CONFLICT", code)
	}

	// A directory without .git is rejected.
	response = env.do(t, http.MethodPost, "/api/repos", addRepoRequest{Path: t.TempDir()})
	if response.StatusCode != http.StatusBadRequest {
		t.Errorf("non-repo path: status = %d, want 400", response.StatusCode)
	}

	// Delete, then deleting again is a 404.
	response = env.do(t, http.MethodDelete, "/api/repos/"+repo.ID.String(), nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("delete: status = %d, want 200", response.StatusCode)
	}
	response = env.do(t, http.MethodDelete, "/api/repos/"+repo.ID.String(), nil)
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", response.StatusCode)
	} else if code := errorCode(t, response); code != "NOT_FOUND" {
		t.Errorf("second delete: code = %q, want NOT_FOUND", code)
	}
}

func TestRepoCustomName(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	dir := initGitRepo(t)

	response := env.do(t, http.MethodPost, "/api/repos",
		addRepoRequest{Path: dir, Name: "frontend"})
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", response.StatusCode)
	}
	var repo store.Repo
	decodeBody(t, response, &repo)
	if repo.Name != "frontend" {
		t.Errorf("Name = %q, want frontend", repo.Name)
	}
}

func TestRepoScan(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	// root/projects/app is a repo; root/projects/notes is not;
	// root/.cache/hidden-repo is skipped for being hidden.
	root := t.TempDir()
	appDir := filepath.Join(root, "projects", "app")
	if err := os.MkdirAll(filepath.Join(appDir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "projects", "notes"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, ".cache", "hidden-repo", ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	response := env.do(t, http.MethodPost, "/api/repos/scan",
		scanRequest{Directories: []string{root}})
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}
	var result scanResponse
	decodeBody(t, response, &result)
	if len(result.Found) != 1 {
		t.Fatalf("found %d repos, want 1: %+v", len(result.Found), result.Found)
	}
	if result.Found[0].Path != appDir || result.Found[0].Name != "app" {
		t.Errorf("found = %+v, want %s named app", result.Found[0], appDir)
	}
}

func TestRepoScanRespectsDepth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	root := t.TempDir()
	deep := filepath.Join(root, "a", "b", "c", "repo")
	if err := os.MkdirAll(filepath.Join(deep, ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	response := env.do(t, http.MethodPost, "/api/repos/scan",
		scanRequest{Directories: []string{root}, Depth: 2})
	var result scanResponse
	decodeBody(t, response, &result)
	if len(result.Found) != 0 {
		t.Errorf("depth 2 found %+v, want nothing at depth 4", result.Found)
	}

	response = env.do(t, http.MethodPost, "/api/repos/scan",
		scanRequest{Directories: []string{root}, Depth: 4})
	decodeBody(t, response, &result)
	if len(result.Found) != 1 {
		t.Errorf("depth 4 found %d repos, want 1", len(result.Found))
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	repo := env.addRepo(t, initGitRepo(t))

	session := env.createSession(t, repo.ID, "refactor auth")
	if session.Status != hub.StatusIdle {
		t.Errorf("new session status = %q, want idle", session.Status)
	}
	if session.RepoID != repo.ID {
		t.Errorf("RepoID = %s, want %s", session.RepoID, repo.ID)
	}

	// Fetch it back.
	response := env.do(t, http.MethodGet, "/api/sessions/"+session.ID.String(), nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("get: status = %d, want 200", response.StatusCode)
	}
	var fetched store.Session
	decodeBody(t, response, &fetched)
	if fetched.ID != session.ID || fetched.Name != "refactor auth" {
		t.Errorf("fetched = %+v, want the created session", fetched)
	}

	// Filter by repo.
	response = env.do(t, http.MethodGet, "/api/sessions?repo_id="+repo.ID.String(), nil)
	var sessions []store.Session
	decodeBody(t, response, &sessions)
	if len(sessions) != 1 {
		t.Fatalf("filtered list has %d sessions, want 1", len(sessions))
	}
	response = env.do(t, http.MethodGet, "/api/sessions?repo_id="+uuid.NewString(), nil)
	decodeBody(t, response, &sessions)
	if len(sessions) != 0 {
		t.Errorf("filter by unknown repo returned %d sessions, want 0", len(sessions))
	}

	// Delete.
	response = env.do(t, http.MethodDelete, "/api/sessions/"+session.ID.String(), nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("delete: status = %d, want 200", response.StatusCode)
	}
	response = env.do(t, http.MethodGet, "/api/sessions/"+session.ID.String(), nil)
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", response.StatusCode)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	// repo_id is required.
	response := env.do(t, http.MethodPost, "/api/sessions", createSessionRequest{})
	if response.StatusCode != http.StatusBadRequest {
		t.Errorf("missing repo_id: status = %d, want 400", response.StatusCode)
	}

	// Unknown repo is a 404.
	response = env.do(t, http.MethodPost, "/api/sessions",
		createSessionRequest{RepoID: uuid.New()})
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("unknown repo: status = %d, want 404", response.StatusCode)
	}

	// Malformed id in the path is a 400, not a 404.
	response = env.do(t, http.MethodGet, "/api/sessions/not-a-uuid", nil)
	if response.StatusCode != http.StatusBadRequest {
		t.Errorf("bad path id: status = %d, want 400", response.StatusCode)
	} else if code := errorCode(t, response); code != "BAD_REQUEST" {
		t.Errorf("bad path id: code = %q, want BAD_REQUEST", code)
	}
}

func TestMessages(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	repo := env.addRepo(t, initGitRepo(t))
	session := env.createSession(t, repo.ID, "")
	base := "/api/sessions/" + session.ID.String() + "/messages"

	response := env.do(t, http.MethodPost, base,
		createMessageRequest{Role: "user", Content: "fix the login bug"})
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("post message: status = %d, want 201", response.StatusCode)
	}
	response = env.do(t, http.MethodPost, base,
		createMessageRequest{Role: "assistant", Content: "done"})
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("post message: status = %d, want 201", response.StatusCode)
	}

	// Bad role and empty content are rejected.
	response = env.do(t, http.MethodPost, base,
		createMessageRequest{Role: "narrator", Content: "hm"})
	if response.StatusCode != http.StatusBadRequest {
		t.Errorf("bad role: status = %d, want 400", response.StatusCode)
	}
	response = env.do(t, http.MethodPost, base,
		createMessageRequest{Role: "user", Content: ""})
	if response.StatusCode != http.StatusBadRequest {
		t.Errorf("empty content: status = %d, want 400", response.StatusCode)
	}

	response = env.do(t, http.MethodGet, base, nil)
	var messages []store.Message
	decodeBody(t, response, &messages)
	if len(messages) != 2 {
		t.Fatalf("listed %d messages, want 2", len(messages))
	}
	if messages[0].Role != store.RoleUser || messages[1].Role != store.RoleAssistant {
		t.Errorf("roles = %q, %q; want user, assistant", messages[0].Role, messages[1].Role)
	}

	// Messages for an unknown session are a 404, not an empty list.
	response = env.do(t, http.MethodGet, "/api/sessions/"+uuid.NewString()+"/messages", nil)
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", response.StatusCode)
	}
}

func TestOutputPaging(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	repo := env.addRepo(t, initGitRepo(t))
	session := env.createSession(t, repo.ID, "")

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := env.store.AppendOutput(ctx, session.ID, hub.StreamStdout,
			fmt.Sprintf("line %d", i))
		if err != nil {
			t.Fatalf("seeding output: %v", err)
		}
	}

	base := "/api/sessions/" + session.ID.String() + "/output"
	response := env.do(t, http.MethodGet, base+"?limit=3", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}
	var page outputPageResponse
	decodeBody(t, response, &page)
	if len(page.Rows) != 3 || page.Total != 5 || !page.HasMore {
		t.Fatalf("first page: rows=%d total=%d hasMore=%v, want 3/5/true",
			len(page.Rows), page.Total, page.HasMore)
	}

	cursor := page.Rows[len(page.Rows)-1].ID
	response = env.do(t, http.MethodGet,
		fmt.Sprintf("%s?limit=3&after=%d", base, cursor), nil)
	decodeBody(t, response, &page)
	if len(page.Rows) != 2 || page.HasMore {
		t.Fatalf("second page: rows=%d hasMore=%v, want 2/false", len(page.Rows), page.HasMore)
	}
	if page.Rows[0].Content != "line 3" {
		t.Errorf("second page starts at %q, want line 3", page.Rows[0].Content)
	}

	// Negative paging parameters are rejected.
	response = env.do(t, http.MethodGet, base+"?after=-1", nil)
	if response.StatusCode != http.StatusBadRequest {
		t.Errorf("negative after: status = %d, want 400", response.StatusCode)
	}

	// Unknown session is a 404.
	response = env.do(t, http.MethodGet, "/api/sessions/"+uuid.NewString()+"/output", nil)
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", response.StatusCode)
	}
}

func TestOutputExport(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	repo := env.addRepo(t, initGitRepo(t))
	session := env.createSession(t, repo.ID, "")

	ctx := context.Background()
	if _, err := env.store.AppendOutput(ctx, session.ID, hub.StreamStdout, "building"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.store.AppendOutput(ctx, session.ID, hub.StreamStderr, "warning: deprecated"); err != nil {
		t.Fatal(err)
	}

	response := env.do(t, http.MethodGet,
		"/api/sessions/"+session.ID.String()+"/output/export", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}
	if disposition := response.Header.Get("Content-Disposition"); !strings.Contains(disposition, ".txt.zst") {
		t.Errorf("Content-Disposition = %q, want a .txt.zst attachment", disposition)
	}

	decoder, err := zstd.NewReader(response.Body)
	if err != nil {
		t.Fatalf("opening zstd stream: %v", err)
	}
	defer decoder.Close()
	transcript, err := io.ReadAll(decoder)
	if err != nil {
		t.Fatalf("reading transcript: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(transcript), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("transcript has %d lines, want 2:\n%s", len(lines), transcript)
	}
	if !strings.Contains(lines[0], "[stdout] building") {
		t.Errorf("line 0 = %q, want stdout building", lines[0])
	}
	if !strings.Contains(lines[1], "[stderr] warning: deprecated") {
		t.Errorf("line 1 = %q, want stderr warning", lines[1])
	}
}

func TestConfigEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	// An unset key reads back as null, not 404.
	response := env.do(t, http.MethodGet, "/api/config/backend", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("get unset key: status = %d, want 200", response.StatusCode)
	}
	var value configValueResponse
	decodeBody(t, response, &value)
	if value.Value != nil {
		t.Errorf("unset key value = %v, want null", *value.Value)
	}

	// Batch update, then read everything back.
	response = env.do(t, http.MethodPut, "/api/config", updateConfigRequest{
		Config: map[string]string{"backend": "claude", "preset": "tdd-red-green"},
	})
	if response.StatusCode != http.StatusOK {
		t.Fatalf("batch update: status = %d, want 200", response.StatusCode)
	}
	var all configResponse
	decodeBody(t, response, &all)
	if all.Config["backend"] != "claude" || all.Config["preset"] != "tdd-red-green" {
		t.Errorf("config = %v, want both keys set", all.Config)
	}

	// Single-key set overwrites.
	response = env.do(t, http.MethodPut, "/api/config/backend",
		setConfigValueRequest{Value: "bedrock"})
	decodeBody(t, response, &value)
	if value.Value == nil || *value.Value != "bedrock" {
		t.Errorf("set value = %v, want bedrock", value.Value)
	}

	// Delete, then a second delete is a 404.
	response = env.do(t, http.MethodDelete, "/api/config/backend", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("delete: status = %d, want 200", response.StatusCode)
	}
	response = env.do(t, http.MethodDelete, "/api/config/backend", nil)
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", response.StatusCode)
	}

	// Empty keys in a batch are rejected.
	response = env.do(t, http.MethodPut, "/api/config", updateConfigRequest{
		Config: map[string]string{"": "oops"},
	})
	if response.StatusCode != http.StatusBadRequest {
		t.Errorf("empty key: status = %d, want 400", response.StatusCode)
	}
}

func TestBackendAndPresetLists(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	response := env.do(t, http.MethodGet, "/api/config/backends", nil)
	var backends map[string][]backend
	decodeBody(t, response, &backends)
	ids := map[string]bool{}
	for _, b := range backends["backends"] {
		ids[b.ID] = true
	}
	for _, want := range []string{"claude", "bedrock", "vertex"} {
		if !ids[want] {
			t.Errorf("backends missing %q: %v", want, backends["backends"])
		}
	}

	response = env.do(t, http.MethodGet, "/api/config/presets", nil)
	var presets map[string][]preset
	decodeBody(t, response, &presets)
	if len(presets["presets"]) < 4 {
		t.Errorf("presets = %v, want at least the standard set", presets["presets"])
	}
}

func TestGitStatusAndLog(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	dir := initGitRepo(t)
	repo := env.addRepo(t, dir)
	session := env.createSession(t, repo.ID, "")
	base := "/api/sessions/" + session.ID.String() + "/git"

	response := env.do(t, http.MethodGet, base+"/status", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status: status = %d, want 200", response.StatusCode)
	}
	var status gitStatusResponse
	decodeBody(t, response, &status)
	if status.Branch != "main" {
		t.Errorf("branch = %q, want main", status.Branch)
	}
	if len(status.Files) != 0 {
		t.Errorf("clean tree reports files: %+v", status.Files)
	}

	response = env.do(t, http.MethodGet, base+"/log", nil)
	var log gitLogResponse
	decodeBody(t, response, &log)
	if len(log.Commits) != 1 || log.Commits[0].Subject != "initial commit" {
		t.Errorf("log = %+v, want the initial commit", log.Commits)
	}

	response = env.do(t, http.MethodGet, base+"/branches", nil)
	var branches gitBranchesResponse
	decodeBody(t, response, &branches)
	if len(branches.Branches) != 1 || branches.Branches[0].Name != "main" || !branches.Branches[0].Current {
		t.Errorf("branches = %+v, want main as current", branches.Branches)
	}
}

func TestGitCommitFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	dir := initGitRepo(t)
	repo := env.addRepo(t, dir)
	session := env.createSession(t, repo.ID, "")
	base := "/api/sessions/" + session.ID.String() + "/git"

	if err := os.WriteFile(filepath.Join(dir, "feature.go"), []byte("package feature\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// Empty messages never reach git.
	response := env.do(t, http.MethodPost, base+"/commit", commitRequest{Message: "   "})
	if response.StatusCode != http.StatusBadRequest {
		t.Errorf("blank message: status = %d, want 400", response.StatusCode)
	}

	response = env.do(t, http.MethodPost, base+"/commit",
		commitRequest{Message: "add feature", StageAll: true})
	if response.StatusCode != http.StatusOK {
		t.Fatalf("commit: status = %d, want 200", response.StatusCode)
	}
	var result gitCommandResponse
	decodeBody(t, response, &result)
	if len(result.Output) != 40 {
		t.Errorf("commit hash = %q, want a 40-char hash", result.Output)
	}

	// The tree is clean again.
	response = env.do(t, http.MethodGet, base+"/status", nil)
	var status gitStatusResponse
	decodeBody(t, response, &status)
	if len(status.Files) != 0 {
		t.Errorf("tree dirty after commit: %+v", status.Files)
	}
}

func TestGitResetRequiresConfirmation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	dir := initGitRepo(t)
	repo := env.addRepo(t, dir)
	session := env.createSession(t, repo.ID, "")
	base := "/api/sessions/" + session.ID.String() + "/git"

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# changed\n"), 0644); err != nil {
		t.Fatal(err)
	}

	response := env.do(t, http.MethodPost, base+"/reset", resetRequest{})
	if response.StatusCode != http.StatusBadRequest {
		t.Fatalf("unconfirmed reset: status = %d, want 400", response.StatusCode)
	}

	response = env.do(t, http.MethodPost, base+"/reset", resetRequest{Confirm: true})
	if response.StatusCode != http.StatusOK {
		t.Fatalf("confirmed reset: status = %d, want 200", response.StatusCode)
	}

	data, err := os.ReadFile(filepath.Join(dir, "README.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "# test\n" {
		t.Errorf("README after reset = %q, want original content", data)
	}
}

func TestGitCheckoutValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	dir := initGitRepo(t)
	repo := env.addRepo(t, dir)
	session := env.createSession(t, repo.ID, "")
	base := "/api/sessions/" + session.ID.String() + "/git"

	for _, branch := range []string{"", "   ", "--force"} {
		response := env.do(t, http.MethodPost, base+"/checkout", checkoutRequest{Branch: branch})
		if response.StatusCode != http.StatusBadRequest {
			t.Errorf("checkout %q: status = %d, want 400", branch, response.StatusCode)
		}
	}

	runGit(t, dir, "branch", "feature")
	response := env.do(t, http.MethodPost, base+"/checkout", checkoutRequest{Branch: "feature"})
	if response.StatusCode != http.StatusOK {
		t.Fatalf("checkout feature: status = %d, want 200", response.StatusCode)
	}
	response = env.do(t, http.MethodGet, base+"/status", nil)
	var status gitStatusResponse
	decodeBody(t, response, &status)
	if status.Branch != "feature" {
		t.Errorf("branch after checkout = %q, want feature", status.Branch)
	}
}

func TestGitForUnknownSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	response := env.do(t, http.MethodGet,
		"/api/sessions/"+uuid.NewString()+"/git/status", nil)
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", response.StatusCode)
	}
}
