// Package openaiclient is a minimal HTTP client for OpenAI-compatible chat
// APIs, covering OpenAI, Azure OpenAI, and Bearer-compatible providers like
// Perplexity.
package openaiclient

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JoviDeCroock/tanstack-ai/pkg/schema"
	"github.com/cockroachdb/errors"
)

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultChatModel = "gpt-5-mini"
	DefaultMaxTokens = 2 * 16384
)

// ErrEmptyResponse is returned when the API returns no choices.
var ErrEmptyResponse = errors.New("empty response")

type ProviderType string

const (
	ProviderOpenAI     ProviderType = "OPENAI"
	ProviderAzure      ProviderType = "AZURE"
	ProviderAzureAD    ProviderType = "AZURE_AD"
	ProviderPerplexity ProviderType = "PERPLEXITY"
)

func IsAzure(provider ProviderType) bool {
	return provider == ProviderAzure || provider == ProviderAzureAD
}

// ToolType is the type of a tool.
type ToolType string

const (
	ToolTypeFunction ToolType = "function"
)

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls an OpenAI-compatible API.
type Client struct {
	Model          string
	Provider       ProviderType
	ResponseFormat *schema.ResponseFormat

	token        string
	baseURL      string
	organization string
	httpClient   Doer

	// apiVersion is required for Azure and AzureAD
	apiVersion string
}

// Option is an option for the OpenAI client.
type Option func(*Client) error

// New returns a client for the given provider. An empty baseURL falls back
// to the public OpenAI endpoint.
func New(provider ProviderType, model string, token string, baseURL string, organization string,
	apiVersion string, httpClient Doer,
	responseFormat *schema.ResponseFormat,
	opts ...Option,
) (*Client, error) {
	c := &Client{
		Model:          model,
		Provider:       provider,
		ResponseFormat: responseFormat,
		token:          token,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		organization:   organization,
		apiVersion:     apiVersion,
		httpClient:     httpClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// setHeaders authorizes the request. OpenAI and Azure take a Bearer token;
// other compatible providers take the key in the api-key header.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	switch c.Provider {
	case ProviderOpenAI, ProviderAzure, ProviderAzureAD, "OPEN_AI":
		req.Header.Set("Authorization", "Bearer "+c.token)
	default:
		req.Header.Set("api-key", c.token)
	}
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}
}

// buildURL resolves the endpoint for the operation suffix. Azure routes
// through /openai/deployments/{model} and carries the api-version query.
func (c *Client) buildURL(suffix string, model string) string {
	if IsAzure(c.Provider) {
		return fmt.Sprintf("%s/openai/deployments/%s%s?api-version=%s",
			strings.TrimRight(c.baseURL, "/"), model, suffix, c.apiVersion)
	}
	return c.baseURL + suffix
}

type errorMessage struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
