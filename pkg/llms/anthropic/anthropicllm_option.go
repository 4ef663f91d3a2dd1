package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	TokenEnvVarName = "ANTHROPIC_API_KEY" //nolint:gosec
)

type Options struct {
	Token      string
	Model      string
	BaseURL    string
	HttpClient option.HTTPClient

	// When set, sent as the 'anthropic-beta' request header.
	AnthropicBetaHeader string
}

type Option func(*Options)

// WithToken sets the API token. Defaults to the ANTHROPIC_API_KEY
// environment variable.
func WithToken(token string) Option {
	return func(opts *Options) { opts.Token = token }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(opts *Options) { opts.Model = model }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) { opts.BaseURL = baseURL }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client option.HTTPClient) Option {
	return func(opts *Options) { opts.HttpClient = client }
}

// WithAnthropicBetaHeader opts the client into a beta feature.
func WithAnthropicBetaHeader(value string) Option {
	return func(opts *Options) { opts.AnthropicBetaHeader = value }
}
