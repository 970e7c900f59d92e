package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"chatcore/config"
	"chatcore/model"
)

const defaultSearchBaseURL = "https://www.googleapis.com"

// Search queries the Google Custom Search JSON API and returns one
// "title: link" line per result. The API returns at most ten results.
type Search struct {
	baseURL string
	client  *http.Client
	secrets SecretSource
}

// NewSearch creates the search executor. The API key and search engine id
// are read from secrets on every call.
func NewSearch(baseURL string, client *http.Client, secrets SecretSource) *Search {
	if baseURL == "" {
		baseURL = defaultSearchBaseURL
	}
	return &Search{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  clientOrDefault(client),
		secrets: secrets,
	}
}

func (s *Search) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Name: "search",
		Description: "Search a prompt online. Returns up to 10 results (title and url). " +
			"Send several queries as separate calls when needed. Don't use it for general knowledge or basic questions.",
		Parameters: []model.ToolParameter{
			{Name: "query", Type: "string", Description: "The query to be searched", Required: true},
		},
	}
}

type searchResponse struct {
	Items []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"items"`
}

type searchError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Search) Execute(ctx context.Context, args map[string]any) (string, error) {
	name := s.Definition().Name
	query := stringArg(args, "query")

	key := s.secrets.Secret(config.KeyGoogleSearchToken)
	cx := s.secrets.Secret(config.KeyGoogleSearchID)
	if key == "" || cx == "" {
		return "", toolError(name, model.ToolErrCredential, errors.New("Google search token and search id must be configured"))
	}

	params := url.Values{
		"key": {key},
		"cx":  {cx},
		"q":   {query},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/customsearch/v1?"+params.Encode(), nil)
	if err != nil {
		return "", toolError(name, model.ToolErrArguments, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", toolError(name, model.ToolErrNetwork, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(body))
		var se searchError
		if json.Unmarshal(body, &se) == nil && se.Error.Message != "" {
			msg = se.Error.Message
		}
		return "", toolError(name, model.ToolErrHTTPStatus, fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", toolError(name, model.ToolErrDecode, fmt.Errorf("decode response: %w", err))
	}

	if len(sr.Items) == 0 {
		return "No results found.", nil
	}

	lines := make([]string, 0, len(sr.Items))
	for _, item := range sr.Items {
		lines = append(lines, item.Title+": "+item.Link)
	}
	return strings.Join(lines, "\n"), nil
}
