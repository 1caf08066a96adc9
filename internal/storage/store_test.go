package storage

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetMissingNamespace(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.Get(context.Background(), "work-log")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	payload := json.RawMessage(`{"folders":[],"entries":[{"id":"work-1","title":"배포"}]}`)

	require.NoError(t, s.Put(ctx, "work-log", payload))

	got, found, err := s.Get(ctx, "work-log")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, string(payload), string(got))
}

func TestPutReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "work-log", json.RawMessage(`{"v":1}`)))
	require.NoError(t, s.Put(ctx, "work-log", json.RawMessage(`{"v":2}`)))

	got, found, err := s.Get(ctx, "work-log")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"v":2}`, string(got))
}

func TestPutRejectsInvalidJSON(t *testing.T) {
	s := newTestStore(t)

	err := s.Put(context.Background(), "work-log", json.RawMessage(`{broken`))
	assert.Error(t, err)
}

func TestPutRejectsOversizedPayload(t *testing.T) {
	s := newTestStore(t)
	huge := `{"blob":"` + strings.Repeat("a", maxPayloadBytes) + `"}`

	err := s.Put(context.Background(), "work-log", json.RawMessage(huge))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestDeleteAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "b-namespace", json.RawMessage(`{}`)))
	require.NoError(t, s.Put(ctx, "a-namespace", json.RawMessage(`{}`)))

	names, err := s.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-namespace", "b-namespace"}, names)

	require.NoError(t, s.Delete(ctx, "a-namespace"))
	require.NoError(t, s.Delete(ctx, "missing"), "deleting an absent namespace is fine")

	names, err = s.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b-namespace"}, names)
}
