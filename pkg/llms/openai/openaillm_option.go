package openai

import (
	"net/http"
	"os"

	"github.com/JoviDeCroock/tanstack-ai/pkg/llms/openai/internal/openaiclient"
	"github.com/JoviDeCroock/tanstack-ai/pkg/schema"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
)

const (
	tokenEnvVarName        = "OPENAI_API_KEY"      //nolint:gosec
	modelEnvVarName        = "OPENAI_MODEL"        //nolint:gosec
	baseURLEnvVarName      = "OPENAI_BASE_URL"     //nolint:gosec
	baseAPIBaseEnvVarName  = "OPENAI_API_BASE"     //nolint:gosec
	organizationEnvVarName = "OPENAI_ORGANIZATION" //nolint:gosec
)

// ErrMissingToken is returned when no API key was supplied.
var ErrMissingToken = errors.New("openai: missing API key, set it in the OPENAI_API_KEY environment variable")

type ProviderType = openaiclient.ProviderType

const (
	ProviderOpenAI     = openaiclient.ProviderOpenAI
	ProviderAzure      = openaiclient.ProviderAzure
	ProviderAzureAD    = openaiclient.ProviderAzureAD
	ProviderPerplexity = openaiclient.ProviderPerplexity
)

const (
	DefaultAPIVersion = "2023-05-15"
)

type options struct {
	token        string
	model        string
	baseURL      string
	organization string
	provider     ProviderType
	httpClient   openaiclient.Doer

	responseFormat *schema.ResponseFormat

	// required when provider is ProviderAzure or ProviderAzureAD
	apiVersion string
}

// Option configures the OpenAI client.
type Option func(*options)

// WithToken sets the API token. Defaults to the OPENAI_API_KEY
// environment variable.
func WithToken(token string) Option {
	return func(opts *options) { opts.token = token }
}

// WithModel sets the model name. Defaults to the OPENAI_MODEL environment
// variable. Azure deployments must set it.
func WithModel(model string) Option {
	return func(opts *options) { opts.model = model }
}

// WithBaseURL overrides the API endpoint. Defaults to OPENAI_BASE_URL or
// OPENAI_API_BASE from the environment, then to the public OpenAI API.
func WithBaseURL(baseURL string) Option {
	return func(opts *options) { opts.baseURL = baseURL }
}

// WithOrganization sets the organization header. Defaults to the
// OPENAI_ORGANIZATION environment variable.
func WithOrganization(organization string) Option {
	return func(opts *options) { opts.organization = organization }
}

// WithProvider selects the API flavor, ProviderOpenAI by default.
func WithProvider(provider ProviderType) Option {
	return func(opts *options) { opts.provider = provider }
}

// WithAPIVersion sets the Azure api-version query parameter,
// DefaultAPIVersion by default.
func WithAPIVersion(apiVersion string) Option {
	return func(opts *options) { opts.apiVersion = apiVersion }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client openaiclient.Doer) Option {
	return func(opts *options) { opts.httpClient = client }
}

// WithResponseFormat requests a structured response format.
func WithResponseFormat(responseFormat *schema.ResponseFormat) Option {
	return func(opts *options) { opts.responseFormat = responseFormat }
}

func newClient(opts ...Option) (*options, *openaiclient.Client, error) {
	o := &options{
		token:        os.Getenv(tokenEnvVarName),
		model:        os.Getenv(modelEnvVarName),
		baseURL:      values.StringsCoalesce(os.Getenv(baseURLEnvVarName), os.Getenv(baseAPIBaseEnvVarName)),
		organization: os.Getenv(organizationEnvVarName),
		provider:     ProviderOpenAI,
		apiVersion:   DefaultAPIVersion,
		httpClient:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(o)
	}

	if len(o.token) == 0 {
		return o, nil, ErrMissingToken
	}

	cli, err := openaiclient.New(o.provider, o.model, o.token, o.baseURL,
		o.organization, o.apiVersion, o.httpClient, o.responseFormat)
	return o, cli, err
}
