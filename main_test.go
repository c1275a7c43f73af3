package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/antibyte/turtleterm/pkg/auth"
	"github.com/antibyte/turtleterm/pkg/configuration"
	"github.com/antibyte/turtleterm/pkg/resources"
	"github.com/antibyte/turtleterm/pkg/store"
	"github.com/antibyte/turtleterm/pkg/terminal"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	return path
}

func TestCheckCommand(t *testing.T) {
	configuration.InitializeDefaults()

	tests := []struct {
		name     string
		script   string
		wantCode int
		wantOut  []string
	}{
		{"valid", "moveto 10 10\nsquare 5\n", exitOK, []string{": OK"}},
		{"unknown command", "moveto 1 1\njump 4\n", exitScript, []string{":2: UnknownCommand"}},
		{"usage hint", "fill maybe\n", exitScript, []string{":1: MalformedCommand", "usage: fill on|off"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, "drawing.turtle", tt.script)
			var out bytes.Buffer
			if code := checkCommand(&out, path); code != tt.wantCode {
				t.Errorf("Expected exit code %d, got %d (%s)", tt.wantCode, code, out.String())
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out.String(), want) {
					t.Errorf("Expected output to contain %q, got %q", want, out.String())
				}
			}
		})
	}

	var out bytes.Buffer
	if code := checkCommand(&out, filepath.Join(t.TempDir(), "missing.turtle")); code != exitUsage {
		t.Errorf("Expected exit code %d for a missing file, got %d", exitUsage, code)
	}
}

func TestSVGCommand(t *testing.T) {
	configuration.InitializeDefaults()

	path := writeScript(t, "house.turtle", "moveto 20 20\nrectangle 40 30\n")
	var out bytes.Buffer
	if code := svgCommand(&out, path, ""); code != exitOK {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	doc := out.String()
	if !strings.Contains(doc, "<svg") || !strings.Contains(doc, "<title>house</title>") {
		t.Errorf("Unexpected SVG document: %s", doc)
	}

	bad := writeScript(t, "bad.turtle", "circle radius\n")
	out.Reset()
	if code := svgCommand(&out, bad, "bad"); code != exitScript {
		t.Errorf("Expected exit code %d for a failing script, got %d", exitScript, code)
	}
	if out.Len() != 0 {
		t.Errorf("Expected no SVG output for a failing script, got %q", out.String())
	}
}

func newTestRoutes(t *testing.T) *httptest.Server {
	t.Helper()
	configuration.InitializeDefaults()
	db, err := store.Open(filepath.Join(t.TempDir(), "turtle.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sessions := resources.NewSessionManager()
	term := terminal.NewHandler(sessions, db)
	srv := httptest.NewServer(routes(auth.NewHandler(db), term, sessions))
	t.Cleanup(func() {
		srv.Close()
		term.Shutdown()
	})
	return srv
}

func TestRoutesGuestFlow(t *testing.T) {
	srv := newTestRoutes(t)

	resp, err := http.Post(srv.URL+"/api/auth/session", "application/json", nil)
	if err != nil {
		t.Fatalf("Session request failed: %v", err)
	}
	var session auth.AuthResponse
	err = json.NewDecoder(resp.Body).Decode(&session)
	resp.Body.Close()
	if err != nil || !session.Success || session.Token == "" {
		t.Fatalf("Unexpected session response %+v, %v", session, err)
	}

	resp, err = http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatalf("Stats request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/stats", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Stats request failed: %v", err)
	}
	var stats map[string]int
	err = json.NewDecoder(resp.Body).Decode(&stats)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats["total_sessions"] != 0 || stats["connected_clients"] != 0 {
		t.Errorf("Unexpected stats %v", stats)
	}
}

func TestRoutesScriptEndpoints(t *testing.T) {
	srv := newTestRoutes(t)

	resp, err := http.Post(srv.URL+"/api/check", "text/plain", strings.NewReader("loop\ncircle 3\n"))
	if err != nil {
		t.Fatalf("Check request failed: %v", err)
	}
	var res struct {
		OK   bool   `json:"ok"`
		Kind string `json:"kind"`
	}
	err = json.NewDecoder(resp.Body).Decode(&res)
	resp.Body.Close()
	if err != nil || res.OK || res.Kind != "MismatchedBlock" {
		t.Errorf("Unexpected check result %+v, %v", res, err)
	}

	resp, err = http.Post(srv.URL+"/api/render.svg", "text/plain", strings.NewReader("circle 10\n"))
	if err != nil {
		t.Fatalf("Render request failed: %v", err)
	}
	resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); resp.StatusCode != http.StatusOK || ct != "image/svg+xml" {
		t.Errorf("Expected an SVG response, got %d %s", resp.StatusCode, ct)
	}
}

// TestNoHardcodedSecrets scans the Go sources for key material that
// belongs in the environment.
func TestNoHardcodedSecrets(t *testing.T) {
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`sk-[a-zA-Z0-9]{32}`),
		regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
	}

	err := filepath.WalkDir(".", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != "." && (strings.HasPrefix(d.Name(), "_") || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, p := range patterns {
			if loc := p.FindIndex(content); loc != nil {
				line := bytes.Count(content[:loc[0]], []byte("\n")) + 1
				t.Errorf("%s:%d matches %s", path, line, p)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to scan sources: %v", err)
	}
}

func TestREPLFeedWaitsForBlocks(t *testing.T) {
	s := newREPLSession()
	lines := []string{"method Box size", "loop", "square size", "endloop"}
	for _, l := range lines {
		if _, ready := s.feed(l); ready {
			t.Fatalf("Chunk ready too early at %q", l)
		}
	}
	chunk, ready := s.feed("endmethod")
	if !ready {
		t.Fatal("Expected the chunk to be ready after endmethod")
	}
	if want := strings.Join(append(lines, "endmethod"), "\n"); chunk != want {
		t.Errorf("Expected chunk %q, got %q", want, chunk)
	}
	if _, ready := s.feed("endif"); !ready {
		t.Error("A stray closer should not open a block")
	}
}

func TestREPLEval(t *testing.T) {
	configuration.InitializeDefaults()
	s := newREPLSession()
	ctx := context.Background()

	for _, chunk := range []string{"var size 10", "method Box n\nsquare n\nendmethod"} {
		if _, err := s.eval(ctx, chunk); err != nil {
			t.Fatalf("eval(%q) failed: %v", chunk, err)
		}
	}
	summary, err := s.eval(ctx, "Box(size)\ncircle 4")
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if summary != "drew 1 ellipse, 1 rect" {
		t.Errorf("Unexpected summary %q", summary)
	}
	if _, err := s.eval(ctx, "set missing 1"); err == nil {
		t.Error("Expected an error for an undefined variable")
	}

	var out bytes.Buffer
	s.command(":vars", &out)
	s.command(":methods", &out)
	if !strings.Contains(out.String(), "size = 10") || !strings.Contains(out.String(), "Box") {
		t.Errorf("Unexpected listing %q", out.String())
	}

	path := filepath.Join(t.TempDir(), "drawing.svg")
	out.Reset()
	s.command(":svg "+path, &out)
	doc, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(doc), "<svg") {
		t.Errorf("Expected an SVG file, got %v (%s)", err, out.String())
	}

	if quit := s.command(":reset", &out); quit {
		t.Error(":reset should not quit")
	}
	if _, ok := s.it.Variable("size"); ok || s.rec.Len() != 0 {
		t.Error("Expected :reset to clear state and drawing")
	}
	if !s.command(":quit", &out) {
		t.Error("Expected :quit to quit")
	}
}
