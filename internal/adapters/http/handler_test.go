package httpadapter_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/PabloGalante/minidxo/internal/adapters/http"
	"github.com/PabloGalante/minidxo/internal/adapters/llm"
	"github.com/PabloGalante/minidxo/internal/adapters/storage/memory"
	"github.com/PabloGalante/minidxo/internal/app/agentflow"
	"github.com/PabloGalante/minidxo/internal/app/conversation"
	"github.com/PabloGalante/minidxo/internal/app/knowledge"
	"github.com/PabloGalante/minidxo/internal/app/triage"
	"github.com/PabloGalante/minidxo/internal/testutil"
)

func newTestServer(t *testing.T, opts httpadapter.Options) *httpadapter.Server {
	t.Helper()

	engine := llm.NewMockLLM()
	index := testutil.NewMockIndex("Cough and fever are common in viral infections such as flu or COVID-19.")
	policy := knowledge.NewPolicy(index, testutil.NewMockWeb("web"), 2, time.Second)

	convSvc := conversation.NewService(
		memory.NewSessionStore(),
		memory.NewMessageStore(),
		triage.NewAgent(engine, policy, triage.DefaultOptions()),
		agentflow.NewPanel(engine, 5, time.Second),
		nil,
		conversation.Options{RecallDepth: 3, PanelByDefault: true},
	)

	srv := httpadapter.NewServer(convSvc, opts)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/sessions", `{"user_id":"test-user","title":"Test"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Session struct {
			ID           string `json:"id"`
			PanelEnabled bool   `json:"panel_enabled"`
		} `json:"session"`
		Greeting string `json:"greeting"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Session.ID == "" || resp.Greeting == "" || !resp.Session.PanelEnabled {
		t.Fatalf("unexpected create response %s", w.Body.String())
	}
	return resp.Session.ID
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, httpadapter.Options{})
	w := do(t, srv, http.MethodGet, "/healthz", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

func TestCreateSessionAndSendMessage(t *testing.T) {
	srv := newTestServer(t, httpadapter.Options{})
	id := createSession(t, srv)

	w := do(t, srv, http.MethodPost, "/sessions/"+id+"/messages", `{"user_id":"test-user","text":"cough, fever"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		AgentMessage struct {
			Text        string `json:"text"`
			ContentType string `json:"content_type"`
		} `json:"agent_message"`
		Provenance string `json:"provenance"`
		Consensus  *struct {
			Completed bool `json:"completed"`
			Rounds    int  `json:"rounds"`
		} `json:"consensus"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Provenance != "trusted" {
		t.Errorf("expected trusted provenance, got %q", resp.Provenance)
	}
	if !strings.Contains(resp.AgentMessage.Text, "Panel consensus") {
		t.Errorf("expected consensus section, got %q", resp.AgentMessage.Text)
	}
	if resp.Consensus == nil || !resp.Consensus.Completed || resp.Consensus.Rounds != 1 {
		t.Errorf("unexpected consensus %+v", resp.Consensus)
	}

	w = do(t, srv, http.MethodGet, "/sessions/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var timeline struct {
		Messages []struct {
			Author string `json:"author"`
		} `json:"messages"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &timeline)
	if len(timeline.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(timeline.Messages))
	}

	w = do(t, srv, http.MethodGet, "/sessions/"+id+"/window", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for window, got %d", w.Code)
	}

	w = do(t, srv, http.MethodGet, "/users/test-user/sessions", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), id) {
		t.Errorf("expected session listed, got %d %s", w.Code, w.Body.String())
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := newTestServer(t, httpadapter.Options{})

	if w := do(t, srv, http.MethodGet, "/sessions/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET: expected 404, got %d", w.Code)
	}
	w := do(t, srv, http.MethodPost, "/sessions/nope/messages", `{"user_id":"u","text":"hi"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("POST: expected 404, got %d", w.Code)
	}
}

func TestValidation(t *testing.T) {
	srv := newTestServer(t, httpadapter.Options{})
	id := createSession(t, srv)

	cases := []struct {
		name, method, path, body string
	}{
		{"bad json", http.MethodPost, "/sessions", `{`},
		{"missing user", http.MethodPost, "/sessions", `{}`},
		{"empty text", http.MethodPost, "/sessions/" + id + "/messages", `{"user_id":"u","text":"  "}`},
		{"bad limit", http.MethodGet, "/sessions/" + id + "?limit=-1", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(t, srv, tc.method, tc.path, tc.body); w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestSessionRateLimit(t *testing.T) {
	srv := newTestServer(t, httpadapter.Options{RateLimitRPS: 0.001, RateLimitBurst: 1})
	id := createSession(t, srv)

	body := `{"user_id":"test-user","text":"headache"}`
	if w := do(t, srv, http.MethodPost, "/sessions/"+id+"/messages", body); w.Code != http.StatusOK {
		t.Fatalf("first message: expected 200, got %d", w.Code)
	}
	w := do(t, srv, http.MethodPost, "/sessions/"+id+"/messages", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second message: expected 429, got %d", w.Code)
	}

	// Other sessions have their own budget.
	other := createSession(t, srv)
	if w := do(t, srv, http.MethodPost, "/sessions/"+other+"/messages", body); w.Code != http.StatusOK {
		t.Errorf("other session: expected 200, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, httpadapter.Options{})
	if w := do(t, srv, http.MethodGet, "/metrics", ""); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, httpadapter.Options{})
	w := do(t, srv, http.MethodOptions, "/sessions", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
