package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAINoKeySkips(t *testing.T) {
	client := NewOpenAI(OpenAIConfig{}, nil)

	text, err := client.Generate(context.Background(), "테스트", Options{})
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestOpenAIOutputTextString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"output_text":"정리된 답변입니다."}`))
	}))
	defer server.Close()

	client := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL}, nil)

	text, err := client.Generate(context.Background(), "질문", Options{})
	require.NoError(t, err)
	assert.Equal(t, "정리된 답변입니다.", text)
}

func TestOpenAIOutputMessageParts(t *testing.T) {
	body := `{
		"output": [
			{"type": "reasoning", "content": []},
			{"type": "message", "content": [
				{"type": "output_text", "text": "첫 문장. "},
				{"type": "output_text", "text": "둘째 문장."}
			]}
		]
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL}, nil)

	text, err := client.Generate(context.Background(), "질문", Options{})
	require.NoError(t, err)
	assert.Equal(t, "첫 문장. 둘째 문장.", text)
}

func TestOpenAIStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer server.Close()

	client := NewOpenAI(OpenAIConfig{APIKey: "bad-key", BaseURL: server.URL}, nil)

	_, err := client.Generate(context.Background(), "질문", Options{})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "OpenAI", statusErr.Provider)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "invalid api key")
}

func TestFlattenOutputText(t *testing.T) {
	assert.Equal(t, "abc", flattenOutputText("abc"))
	assert.Equal(t, "ab", flattenOutputText([]any{"a", "b", 3}))
	assert.Equal(t, "", flattenOutputText(nil))
	assert.Equal(t, "", flattenOutputText(map[string]any{}))
}
