package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/openexpoota/ota/internal/api"
	"github.com/openexpoota/ota/internal/bundle"
	"github.com/openexpoota/ota/internal/config"
	"github.com/openexpoota/ota/internal/prompt"
)

const testToken = "test-token"

// upload is what the fake server received from one publish.
type upload struct {
	appID       string
	data        api.UpdateMetadata
	contentType string
	entries     map[string]string
}

// fakeServer is an in-memory OTA server.
type fakeServer struct {
	*httptest.Server

	mu           sync.Mutex
	apps         []api.App
	updates      []api.Update
	uploads      []upload
	created      []api.CreateAppRequest
	promoteCalls int
	promoteBody  []byte
	rollbacks    int
	inviteStatus int
	inviteBody   map[string]string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	s := &fakeServer{
		apps: []api.App{
			{ID: 1, Name: "Demo", Slug: "demo", CreatedAt: time.Now().Add(-time.Hour)},
			{ID: 2, Name: "Other", Slug: "other"},
		},
		updates: []api.Update{
			{ID: 42, AppID: 1, Version: "1.0.0", Channel: api.ChannelStaging, RuntimeVersion: "1.0.0"},
		},
		inviteStatus: http.StatusOK,
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.HealthStatus{Status: "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/github", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, r.URL.Query().Get("redirect")+"/?token="+testToken, http.StatusFound)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireToken)
			r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, api.User{ID: 1, Username: "octocat", Email: "octocat@example.com"})
			})
			r.Get("/apps", s.listApps)
			r.Post("/apps", s.createApp)
			r.Get("/apps/{appID}/updates", s.listUpdates)
			r.Post("/apps/{appID}/updates", s.publish)
			r.Post("/apps/{appID}/updates/{updateID}/promote", s.promote)
			r.Post("/apps/{appID}/updates/{updateID}/rollback", s.rollback)
			r.Post("/apps/{appID}/invite", s.invite)
		})
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *fakeServer) listApps(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.apps)
}

func (s *fakeServer) createApp(w http.ResponseWriter, r *http.Request) {
	var req api.CreateAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, req)
	app := api.App{ID: int64(len(s.apps) + 1), Name: req.Name, Slug: req.Slug, Description: req.Description}
	s.apps = append(s.apps, app)
	writeJSON(w, http.StatusCreated, app)
}

func (s *fakeServer) listUpdates(w http.ResponseWriter, r *http.Request) {
	appID, _ := strconv.ParseInt(chi.URLParam(r, "appID"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.Update{}
	for _, u := range s.updates {
		if u.AppID == appID {
			out = append(out, u)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *fakeServer) publish(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var meta api.UpdateMetadata
	if err := json.Unmarshal([]byte(r.FormValue("data")), &meta); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad data field"})
		return
	}
	f, hdr, err := r.FormFile("bundle")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing bundle"})
		return
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	entries, err := unzip(b)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, upload{
		appID:       chi.URLParam(r, "appID"),
		data:        meta,
		contentType: hdr.Header.Get("Content-Type"),
		entries:     entries,
	})
	writeJSON(w, http.StatusCreated, api.Update{
		ID:             7,
		Version:        meta.Version,
		Channel:        api.Channel(meta.Channel),
		RuntimeVersion: meta.RuntimeVersion,
	})
}

func (s *fakeServer) promote(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req struct {
		Channel api.Channel `json:"channel"`
	}
	_ = json.Unmarshal(body, &req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.promoteCalls++
	s.promoteBody = body
	writeJSON(w, http.StatusOK, api.PromoteResult{
		Message: "Update promoted",
		Update:  api.Update{ID: 43, Version: "1.0.0", Channel: req.Channel},
	})
}

func (s *fakeServer) rollback(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollbacks++
	writeJSON(w, http.StatusOK, api.PromoteResult{
		Update: api.Update{ID: 44, Version: "1.0.0", Channel: api.ChannelStaging, IsRollback: true},
	})
}

func (s *fakeServer) invite(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inviteBody = body
	if s.inviteStatus != http.StatusOK {
		writeJSON(w, s.inviteStatus, map[string]string{"error": "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, api.InviteResult{Message: body["username"] + " invited as " + body["role"]})
}

func unzip(b []byte) (map[string]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		out[f.Name] = string(data)
	}
	return out, nil
}

// harness runs the command tree against a fake server and a temporary
// config directory.
type harness struct {
	t         *testing.T
	srv       *fakeServer
	configDir string
	out       bytes.Buffer
	errOut    bytes.Buffer
	env       *Env
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, srv: newFakeServer(t), configDir: t.TempDir()}
	h.env = &Env{Out: &h.out, Err: &h.errOut}
	return h
}

func (h *harness) run(args ...string) error {
	h.out.Reset()
	h.errOut.Reset()
	root := NewRootCmd(h.env)
	root.SetArgs(append([]string{"--config-dir", h.configDir, "--api-url", h.srv.URL + "/api"}, args...))
	return root.ExecuteContext(context.Background())
}

func (h *harness) store() *config.Store {
	return config.NewStore(h.configDir, nil)
}

func (h *harness) login() {
	require.NoError(h.t, h.store().SaveToken(testToken))
}

// answers makes every prompt read the given lines in order.
func (h *harness) answers(lines ...string) {
	h.env.Prompter = &prompt.Lines{
		Out: io.Discard,
		ReadLine: func(string) (string, error) {
			if len(lines) == 0 {
				return "", prompt.ErrAborted
			}
			line := lines[0]
			lines = lines[1:]
			return line, nil
		},
	}
}

// newProject creates an initialized Expo project linked to slug.
func newProject(t *testing.T, slug string) string {
	t.Helper()
	dir := t.TempDir()
	appJSON := `{"expo": {"name": "Demo", "version": "2.0.0", "runtimeVersion": "exposdk:50"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.json"), []byte(appJSON), 0644))
	if slug != "" {
		require.NoError(t, config.SaveProject(dir, &config.ProjectConfig{Slug: slug}))
	}
	return dir
}

// newPackageProject creates a project that only has a package.json without a
// version, linked to slug.
func newPackageProject(t *testing.T, slug string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name": "demo-app"}`), 0644))
	require.NoError(t, config.SaveProject(dir, &config.ProjectConfig{Slug: slug}))
	return dir
}

// fakeExport writes a small Expo export tree into <root>/dist.
func fakeExport(files map[string]string) bundle.ExporterFunc {
	return func(ctx context.Context, projectRoot string) (string, error) {
		dist := filepath.Join(projectRoot, "dist")
		for name, content := range files {
			p := filepath.Join(dist, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
				return "", err
			}
			if err := os.WriteFile(p, []byte(content), 0644); err != nil {
				return "", err
			}
		}
		return dist, nil
	}
}

var exportTree = map[string]string{
	"_expo/static/js/ios/index-abc.js": "console.log('ios')",
	"assets/images/logo.png":           "png",
	"assets/fonts/Inter.ttf":           "ttf",
	"index.html":                       "<html></html>",
}
