package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalcoach/internal/assist"
	"evalcoach/internal/llm"
	"evalcoach/internal/orchestrator"
	"evalcoach/internal/storage"
)

var refinedParagraph = strings.Repeat("가", 148) + "했습니다."

var organizedDraft = "1) 시즌 핵심 요약\n" + strings.Repeat("나", 360) + "했습니다."

func geminiBody(t *testing.T, text string) []byte {
	t.Helper()
	payload := map[string]any{
		"candidates": []map[string]any{
			{
				"finishReason": "STOP",
				"content":      map[string]any{"parts": []map[string]any{{"text": text}}},
			},
		},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return raw
}

// newTestServer wires a server against a stub Gemini backend. A nil handler
// leaves the assist service unconfigured.
func newTestServer(t *testing.T, handler http.Handler) *Server {
	t.Helper()

	gemini := llm.GeminiConfig{}
	if handler != nil {
		backend := httptest.NewServer(handler)
		t.Cleanup(backend.Close)
		gemini = llm.GeminiConfig{APIKey: "test-key", BaseURL: backend.URL}
	}

	registry := prometheus.NewRegistry()
	metrics, err := orchestrator.NewMetrics("test", registry)
	require.NoError(t, err)

	svc, err := assist.NewService(gemini, llm.OpenAIConfig{}, orchestrator.Config{CacheSize: -1}, metrics, nil)
	require.NoError(t, err)

	store, err := storage.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return New(Config{Addr: ":0"}, svc, store, registry, nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["configured"])
}

func TestRefineWithoutAPIKey(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/assistant/refine", `{"item":{"kpiName":"KPI"}}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "GOOGLE_GENERATIVE_AI_API_KEY")
}

func TestRefineRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(geminiBody(t, refinedParagraph))
	}))

	rec := doJSON(t, s, http.MethodPost, "/api/assistant/refine", `{broken`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "잘못된 JSON 요청입니다.")

	rec = doJSON(t, s, http.MethodPost, "/api/assistant/refine", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "item payload가 필요합니다.")
}

func TestRefineRoundTrip(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(geminiBody(t, refinedParagraph))
	}))

	rec := doJSON(t, s, http.MethodPost, "/api/assistant/refine",
		`{"item":{"goalCategory":"시스템 개선","kpiName":"API 마이그레이션","grade":"달성","score":70}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, refinedParagraph, body["refinedText"])
}

func TestOrganizeEmptyEntries(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(geminiBody(t, refinedParagraph))
	}))

	rec := doJSON(t, s, http.MethodPost, "/api/work-log/organize",
		`{"year":2025,"season":"h1","entries":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "정리할 기록이 없습니다.")
}

func TestOrganizeFolderScope(t *testing.T) {
	var prompt string
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			prompt = req.Contents[0].Parts[0].Text
		}
		_, _ = w.Write(geminiBody(t, organizedDraft))
	}))

	body := `{
		"year": 2025, "season": "h1",
		"folders": [
			{"id": "f1", "name": "플랫폼", "parentId": null},
			{"id": "f2", "name": "플랫폼 하위", "parentId": "f1"},
			{"id": "f3", "name": "기타", "parentId": null}
		],
		"entries": [
			{"id": "e1", "folderId": "f2", "title": "포함 업무", "date": "2025-03-10", "type": "task"},
			{"id": "e2", "folderId": "f3", "title": "제외 업무", "date": "2025-03-11", "type": "task"}
		],
		"folderId": "f1"
	}`
	rec := doJSON(t, s, http.MethodPost, "/api/work-log/organize", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, prompt, "포함 업무")
	assert.NotContains(t, prompt, "제외 업무")
}

func TestCandidatesProjection(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{
		"year": 2025, "season": "all",
		"folders": [{"id": "f1", "name": "플랫폼", "parentId": null}],
		"entries": [{"id": "e1", "folderId": "f1", "title": "전환 완료", "date": "2025-03-10", "type": "task"}]
	}`
	rec := doJSON(t, s, http.MethodPost, "/api/work-log/candidates", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Candidates []map[string]any `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "candidate-f1", resp.Candidates[0]["id"])
	assert.Equal(t, float64(100), resp.Candidates[0]["goalTaskWeight"])
}

func TestCandidatesRejectsUnknownSeason(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{"year":2025,"season":"q3","entries":[],"folders":[]}`
	rec := doJSON(t, s, http.MethodPost, "/api/work-log/candidates", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "잘못된 JSON 요청입니다.")
}

func TestCoachRequiresCandidate(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(geminiBody(t, `{"reply":"좋습니다."}`))
	}))

	rec := doJSON(t, s, http.MethodPost, "/api/work-log/candidate-coach", `{"mode":"kickoff"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "candidate payload가 필요합니다.")
}

func TestCoachOverrideKeyBypassesConfigCheck(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(geminiBody(t, `{"reply":"기준을 함께 다듬어 봅시다. 먼저 산식부터 확인하겠습니다."}`))
	}))
	t.Cleanup(backend.Close)

	// Process-level config is empty; the request carries its own key.
	registry := prometheus.NewRegistry()
	metrics, err := orchestrator.NewMetrics("test", registry)
	require.NoError(t, err)
	svc, err := assist.NewService(
		llm.GeminiConfig{BaseURL: backend.URL},
		llm.OpenAIConfig{},
		orchestrator.Config{CacheSize: -1},
		metrics,
		nil,
	)
	require.NoError(t, err)
	store, err := storage.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	s := New(Config{Addr: ":0"}, svc, store, registry, nil)

	body := `{"mode":"kickoff","candidate":{"kpiName":"KPI"},"geminiApiKey":"request-key"}`
	rec := doJSON(t, s, http.MethodPost, "/api/work-log/candidate-coach", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reply")
}

func TestWorkLogStateFirstRunSeedsSample(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/work-log/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var state struct {
		Folders []map[string]any `json:"folders"`
		Entries []map[string]any `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Len(t, state.Folders, 3)
	assert.Len(t, state.Entries, 5)

	rec = doJSON(t, s, http.MethodDelete, "/api/work-log/sample-data", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	// Removal re-normalizes, so a default folder and entry come back.
	require.Len(t, state.Folders, 1)
	assert.NotContains(t, state.Folders[0]["id"], "sample")
}

func TestWorkLogStatePutRepairsInvariants(t *testing.T) {
	s := newTestServer(t, nil)

	// Orphaned entry, no folders at all.
	body := `{"folders":[],"entries":[{"id":"e1","folderId":"missing","title":"업무","date":"2025-03-10","type":"task","sortOrder":1}]}`
	rec := doJSON(t, s, http.MethodPut, "/api/work-log/state", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var state struct {
		Folders []map[string]any `json:"folders"`
		Entries []map[string]any `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Len(t, state.Folders, 1)
	require.Len(t, state.Entries, 1)
	assert.Equal(t, state.Folders[0]["id"], state.Entries[0]["folderId"])
}

func TestWorkLogFolderDeleteReparentsEntries(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{
		"folders": [
			{"id": "f-keep", "name": "유지"},
			{"id": "f-drop", "name": "삭제 대상"},
			{"id": "f-child", "name": "하위", "parentId": "f-drop"}
		],
		"entries": [
			{"id": "e1", "folderId": "f-child", "title": "하위 업무", "date": "2025-03-10", "type": "task", "sortOrder": 1},
			{"id": "e2", "folderId": "f-keep", "title": "유지 업무", "date": "2025-03-11", "type": "task", "sortOrder": 2}
		]
	}`
	rec := doJSON(t, s, http.MethodPut, "/api/work-log/state", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodDelete, "/api/work-log/folders/f-drop", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var state struct {
		Folders []map[string]any `json:"folders"`
		Entries []map[string]any `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Len(t, state.Folders, 1)
	assert.Equal(t, "f-keep", state.Folders[0]["id"])
	for _, entry := range state.Entries {
		assert.Equal(t, "f-keep", entry["folderId"])
	}
}

func TestStateRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/state/work-log", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodPut, "/api/state/work-log", `{"folders":[],"entries":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/state/work-log", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"folders":[],"entries":[]}`, rec.Body.String())

	rec = doJSON(t, s, http.MethodPut, "/api/state/work-log", `{broken`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodDelete, "/api/state/work-log", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/state/work-log", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
