package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitThemes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "plain lines",
			content: "Theme one\nTheme two\nTheme three",
			want:    []string{"Theme one", "Theme two", "Theme three"},
		},
		{
			name:    "bullet prefixes and quotes",
			content: `- Theme one` + "\n" + `* "Theme two"` + "\n" + `  - Theme three  `,
			want:    []string{"Theme one", "Theme two", "Theme three"},
		},
		{
			name:    "blank lines skipped",
			content: "\nTheme one\n\n\nTheme two\n",
			want:    []string{"Theme one", "Theme two"},
		},
		{
			name:    "empty input",
			content: "",
			want:    []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, splitThemes(tc.content))
		})
	}
}

func TestFallbackThemesCursorAvoidsRepeats(t *testing.T) {
	p := &httpThemeProvider{}

	var seen []string
	for range len(fallbackThemes) / themeCount {
		batch := p.FallbackThemes()
		require.Len(t, batch, themeCount)
		seen = append(seen, batch...)
	}

	unique := make(map[string]bool, len(seen))
	for _, theme := range seen {
		unique[theme] = true
	}
	assert.Len(t, unique, len(fallbackThemes), "themes repeated before the list wrapped")

	// Once exhausted, the cursor wraps back to the start.
	assert.Equal(t, fallbackThemes[0], p.FallbackThemes()[0])
}

func chatResponseBody(t *testing.T, content string) []byte {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	require.NoError(t, err)

	return body
}

func TestGenerateThemes(t *testing.T) {
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)

		w.Write(chatResponseBody(t, "One\nTwo\nThree\nFour"))
	}))
	defer srv.Close()

	p := &httpThemeProvider{
		url:    srv.URL,
		key:    "secret",
		model:  "test-model",
		client: srv.Client(),
	}

	themes, err := p.GenerateThemes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two", "Three"}, themes, "extra lines are trimmed to three")
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestGenerateThemesErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "upstream error status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
		},
		{
			name: "too few themes",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[{"message":{"content":"Only one"}}]}`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{`))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			p := &httpThemeProvider{url: srv.URL, client: srv.Client()}

			_, err := p.GenerateThemes(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestGenerateThemesWithoutEndpoint(t *testing.T) {
	p := &httpThemeProvider{client: &http.Client{Timeout: time.Second}}

	_, err := p.GenerateThemes(context.Background())
	assert.Error(t, err)
}
