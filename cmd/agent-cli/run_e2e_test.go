package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/agent"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/config"
)

const loginHTML = `<!doctype html>
<html><head><title>Login</title></head>
<body>
<form method="post" action="/login">
  <input name="user" placeholder="User name">
  <input name="password" type="password" placeholder="Password">
  <button type="submit">Sign in</button>
</form>
</body></html>`

func loginServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, loginHTML)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.FormValue("user") != "bob" || r.FormValue("password") != "hunter2" {
			fmt.Fprint(w, strings.Replace(loginHTML, "<form", "<p>Invalid credentials</p><form", 1))
			return
		}
		fmt.Fprint(w, "<!doctype html><html><body><h1>Welcome, bob</h1></body></html>")
	})
	return httptest.NewServer(mux)
}

// Drives a real headless browser and a real model against a local login
// page.
func TestRunAgent_E2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	if os.Getenv("BROWSER_AGENT_E2E") == "" || os.Getenv("OPENAI_API_KEY") == "" {
		t.Skip("BROWSER_AGENT_E2E and OPENAI_API_KEY must be set")
	}

	for _, mode := range []string{config.MonitorModeAlternate, config.MonitorModeParallel} {
		t.Run(mode, func(t *testing.T) {
			srv := loginServer()
			defer srv.Close()

			history := filepath.Join(t.TempDir(), "history.json")
			v := viper.New()
			config.SetDefaults(v)
			v.Set("browser.headless", true)
			v.Set("browser.user_data_dir", t.TempDir())
			v.Set("agent.max_steps", 12)
			v.Set("agent.history_path", history)
			v.Set("monitor.enabled", true)
			v.Set("monitor.mode", mode)

			var out bytes.Buffer
			err := runAgent(context.Background(), v, runOptions{
				url:  srv.URL,
				task: "Log in as bob with password hunter2, then report the greeting shown on the page.",
			}, strings.NewReader(""), &out)
			require.NoError(t, err, out.String())
			assert.Contains(t, out.String(), "finished: done")

			h, err := agent.LoadHistory(history)
			require.NoError(t, err)
			assert.Equal(t, agent.StatusDone, h.Status)
			assert.Contains(t, strings.ToLower(h.FinalContent), "welcome")
		})
	}
}
