package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatcore/config"
	"chatcore/model"
)

func testToolsConfig() config.ToolsConfig {
	return config.ToolsConfig{FetchChunkTokens: 8, FetchMaxBytes: 1 << 20}
}

func searchSecrets() mapSecrets {
	return mapSecrets{
		config.KeyGoogleSearchToken: "google-key",
		config.KeyGoogleSearchID:    "engine-id",
	}
}

func TestSearchExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customsearch/v1" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("key") != "google-key" || q.Get("cx") != "engine-id" || q.Get("q") != "cats" {
			t.Errorf("query: got %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[
			{"title":"Cat - Wikipedia","link":"https://en.wikipedia.org/wiki/Cat"},
			{"title":"Cats Protection","link":"https://www.cats.org.uk/"}]}`)
	}))
	defer server.Close()

	s := NewSearch(server.URL, server.Client(), searchSecrets())
	got, err := s.Execute(context.Background(), map[string]any{"query": "cats"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	want := "Cat - Wikipedia: https://en.wikipedia.org/wiki/Cat\nCats Protection: https://www.cats.org.uk/"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSearchInvalidKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`)
	}))
	defer server.Close()

	reg := newTestRegistry(t, NewSearch(server.URL, server.Client(), searchSecrets()))
	_, err := reg.Execute(context.Background(), "search", `{"query":"cats"}`)

	var te *model.ToolExecutionError
	if !errors.As(err, &te) {
		t.Fatalf("got %v, want ToolExecutionError", err)
	}
	if te.ErrorType() != model.ToolErrHTTPStatus {
		t.Errorf("kind: got %q", te.ErrorType())
	}
	content := model.ToolFailureContent("search", err)
	if !strings.HasPrefix(content, "Unable to use search:") {
		t.Errorf("got %q", content)
	}
	if !strings.Contains(content, "API key not valid") {
		t.Errorf("upstream message should be kept, got %q", content)
	}
}

func TestSearchMissingCredentials(t *testing.T) {
	s := NewSearch("http://127.0.0.1:0", nil, mapSecrets{config.KeyGoogleSearchToken: "only-key"})
	_, err := s.Execute(context.Background(), map[string]any{"query": "cats"})

	var te *model.ToolExecutionError
	if !errors.As(err, &te) || te.ErrorType() != model.ToolErrCredential {
		t.Errorf("got %v, want credential error", err)
	}
}

func TestSearchNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"searchInformation":{"totalResults":"0"}}`)
	}))
	defer server.Close()

	s := NewSearch(server.URL, server.Client(), searchSecrets())
	got, err := s.Execute(context.Background(), map[string]any{"query": "zzzz"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "No results found." {
		t.Errorf("got %q", got)
	}
}
