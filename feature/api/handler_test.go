package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"docpipe/core/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testApp(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()

	tasks := store.NewMemory("tasks", store.Options{})
	require.NoError(t, tasks.Connect(ctx))
	t.Cleanup(func() { _ = tasks.Close(ctx) })
	require.NoError(t, tasks.Update(ctx, []store.Document{
		{"task_id": "t1", "kind": "relax", "n": 1},
		{"task_id": "t2", "kind": "relax", "n": 2},
		{"task_id": "t3", "kind": "static", "n": 3},
	}, store.UpdateOptions{}))

	app := fiber.New()
	h := NewHandler(NewService(map[string]store.Store{"tasks": tasks}, zap.NewNop()))
	h.RegisterRoutes(app)
	return app
}

func getJSON(t *testing.T, app *fiber.App, path string, want int) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, want, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestHandleListStores(t *testing.T) {
	app := testApp(t)
	body := getJSON(t, app, "/stores/", http.StatusOK)
	assert.Equal(t, []any{"tasks"}, body["stores"])
}

func TestHandleQuery(t *testing.T) {
	app := testApp(t)

	t.Run("no criteria returns everything", func(t *testing.T) {
		body := getJSON(t, app, "/stores/tasks/query", http.StatusOK)
		assert.EqualValues(t, 3, body["count"])
	})

	t.Run("criteria filter", func(t *testing.T) {
		criteria := url.QueryEscape(`{"kind": "relax"}`)
		body := getJSON(t, app, "/stores/tasks/query?criteria="+criteria, http.StatusOK)
		assert.EqualValues(t, 2, body["count"])
	})

	t.Run("limit caps the result", func(t *testing.T) {
		body := getJSON(t, app, "/stores/tasks/query?limit=1", http.StatusOK)
		assert.EqualValues(t, 1, body["count"])
	})

	t.Run("properties project the documents", func(t *testing.T) {
		criteria := url.QueryEscape(`{"task_id": "t1"}`)
		body := getJSON(t, app, "/stores/tasks/query?criteria="+criteria+"&properties=task_id", http.StatusOK)
		docs, ok := body["docs"].([]any)
		require.True(t, ok)
		require.Len(t, docs, 1)
		assert.Equal(t, map[string]any{"task_id": "t1"}, docs[0])
	})

	t.Run("malformed criteria is a client error", func(t *testing.T) {
		criteria := url.QueryEscape(`{not json`)
		body := getJSON(t, app, "/stores/tasks/query?criteria="+criteria, http.StatusBadRequest)
		assert.Contains(t, body["error"], "invalid query")
	})

	t.Run("invalid operator is a client error", func(t *testing.T) {
		criteria := url.QueryEscape(`{"n": {"$regex": "x"}}`)
		getJSON(t, app, "/stores/tasks/query?criteria="+criteria, http.StatusBadRequest)
	})

	t.Run("non-positive limit is a client error", func(t *testing.T) {
		getJSON(t, app, "/stores/tasks/query?limit=0", http.StatusBadRequest)
	})

	t.Run("unknown store fails", func(t *testing.T) {
		getJSON(t, app, "/stores/ghost/query", http.StatusInternalServerError)
	})
}

func TestHandleDistinct(t *testing.T) {
	app := testApp(t)

	t.Run("distinct values of a field", func(t *testing.T) {
		body := getJSON(t, app, "/stores/tasks/distinct/kind", http.StatusOK)
		assert.ElementsMatch(t, []any{"relax", "static"}, body["values"])
		assert.EqualValues(t, 2, body["count"])
	})

	t.Run("criteria restrict the scan", func(t *testing.T) {
		criteria := url.QueryEscape(`{"kind": "static"}`)
		body := getJSON(t, app, "/stores/tasks/distinct/n?criteria="+criteria, http.StatusOK)
		assert.Equal(t, []any{float64(3)}, body["values"])
	})
}
