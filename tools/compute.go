package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"chatcore/config"
	"chatcore/model"
)

const (
	defaultComputeBaseURL = "https://api.wolframalpha.com"
	maxComputeBytes       = 1 << 20
)

// Compute forwards a query to the WolframAlpha LLM API and returns its
// plaintext answer.
type Compute struct {
	baseURL string
	client  *http.Client
	secrets SecretSource
}

func NewCompute(baseURL string, client *http.Client, secrets SecretSource) *Compute {
	if baseURL == "" {
		baseURL = defaultComputeBaseURL
	}
	return &Compute{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  clientOrDefault(client),
		secrets: secrets,
	}
}

func (c *Compute) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Name:        "compute",
		Description: "Send a query to WolframAlpha's computational knowledge API. Use it for math, unit conversions and factual data.",
		Parameters: []model.ToolParameter{
			{Name: "query", Type: "string", Description: "The query to be sent", Required: true},
		},
	}
}

func (c *Compute) Execute(ctx context.Context, args map[string]any) (string, error) {
	name := c.Definition().Name

	appID := c.secrets.Secret(config.KeyWolframToken)
	if appID == "" {
		return "", toolError(name, model.ToolErrCredential, errors.New("WolframAlpha app id must be configured"))
	}

	params := url.Values{
		"appid":  {appID},
		"output": {"plaintext"},
		"input":  {stringArg(args, "query")},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/llm-api?"+params.Encode(), nil)
	if err != nil {
		return "", toolError(name, model.ToolErrArguments, fmt.Errorf("build request: %w", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", toolError(name, model.ToolErrNetwork, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", toolError(name, model.ToolErrHTTPStatus,
			fmt.Errorf("Unable to use WolframAlpha. HTTP code %d (%s).", resp.StatusCode, statusName(resp)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxComputeBytes))
	if err != nil {
		return "", toolError(name, model.ToolErrNetwork, fmt.Errorf("read response: %w", err))
	}
	return string(body), nil
}

// statusName returns the reason phrase of the response status.
func statusName(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
}
