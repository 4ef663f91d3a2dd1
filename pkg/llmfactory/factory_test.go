package llmfactory_test

import (
	"context"
	"testing"

	"github.com/JoviDeCroock/tanstack-ai/pkg/llmfactory"
	"github.com/JoviDeCroock/tanstack-ai/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Factory(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "fakekey")
	t.Setenv("ANTHROPIC_API_KEY", "fakekey")
	t.Setenv("PERPLEXITY_TOKEN", "fakekey")

	cfg, err := llmfactory.LoadConfig("testdata/llm.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Providers)

	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		return &fakeLLM{provider: cfg.Name, model: cfg.FindModel(preferredModels...)}, nil
	}
	defer func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	}()

	f := llmfactory.New(cfg)
	model, err := f.DefaultModel()
	require.NoError(t, err)
	require.NotNil(t, model)
	fm := model.(*fakeLLM)
	assert.Equal(t, "gpt-4o", fm.model)
	assert.Equal(t, "OPEN_AI", fm.provider)

	// Test ModelByName with single model
	model, err = f.ModelByName("gpt-4-mini")
	require.NoError(t, err)
	require.NotNil(t, model)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4-mini", fm.model)
	assert.Equal(t, "OPEN_AI", fm.provider)

	// Test ModelByName with multiple preferred models
	model, err = f.ModelByName("gpt-4-unknown", "gpt-41-mini")
	require.NoError(t, err)
	require.NotNil(t, model)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-41-mini", fm.model)
	assert.Equal(t, "AZURE", fm.provider)

	// Test ModelByName with non-existent models (should fallback to default)
	model, err = f.ModelByName("non-existent-model")
	require.NoError(t, err)
	require.NotNil(t, model)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o", fm.model)
	assert.Equal(t, "OPEN_AI", fm.provider)

	model, err = f.ModelByType("OPEN_AI")
	require.NoError(t, err)
	require.NotNil(t, model)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o", fm.model)
	assert.Equal(t, "OPEN_AI", fm.provider)

	model, err = f.ModelByType("ANTHROPIC")
	require.NoError(t, err)
	require.NotNil(t, model)
	fm = model.(*fakeLLM)
	assert.Equal(t, "claude-sonnet-4-20250514", fm.model)
	assert.Equal(t, "ANTHROPIC", fm.provider)

	model, err = f.ModelByType("PERPLEXITY")
	require.NoError(t, err)
	require.NotNil(t, model)
	fm = model.(*fakeLLM)
	assert.Equal(t, "sonar", fm.model)
	assert.Equal(t, "PERPLEXITY", fm.provider)

	// Test ToolModel with specific tool
	model, err = f.ToolModel("web_search")
	require.NoError(t, err)
	require.NotNil(t, model)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4-mini", fm.model)
	assert.Equal(t, "OPEN_AI", fm.provider)

	// Test ToolModel with non-existent tool (should use default mapping)
	model, err = f.ToolModel("non-existent-tool")
	require.NoError(t, err)
	require.NotNil(t, model)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4-mini", fm.model)
	assert.Equal(t, "OPEN_AI", fm.provider)

	model, err = f.ModelByType("AZURE")
	require.NoError(t, err)
	require.NotNil(t, model)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-41", fm.model)
	assert.Equal(t, "AZURE", fm.provider)

	// Test with unsupported provider type
	_, err = f.ModelByType("UNSUPPORTED")
	assert.EqualError(t, err, "provider not found for type: UNSUPPORTED")

	// Test with empty providers list
	emptyCfg := &llmfactory.Config{}
	emptyFactory := llmfactory.New(emptyCfg)
	_, err = emptyFactory.DefaultModel()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no providers configured")

	// Test with invalid default provider
	invalidCfg := &llmfactory.Config{
		DefaultProvider: "non-existent",
		Providers:       cfg.Providers,
	}
	invalidFactory := llmfactory.New(invalidCfg)
	model, err = invalidFactory.DefaultModel()
	require.NoError(t, err)
	require.NotNil(t, model)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o", fm.model)
	assert.Equal(t, "OPEN_AI", fm.provider)
}

func Test_Load(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "fakekey")
	t.Setenv("ANTHROPIC_API_KEY", "fakekey")
	t.Setenv("PERPLEXITY_TOKEN", "fakekey")

	f, err := llmfactory.Load("testdata/llm.yaml")
	require.NoError(t, err)
	require.NotNil(t, f)

	_, err = llmfactory.Load("testdata/non-existent.yaml")
	require.Error(t, err)
}

func Test_LoadConfig(t *testing.T) {
	_, err := llmfactory.LoadConfig("testdata/non-existent.yaml")
	require.Error(t, err)

	_, err = llmfactory.LoadConfig("testdata/invalid.yaml")
	require.Error(t, err)
}

// Test_ModelCaching tests that models are properly cached
func Test_ModelCaching(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "fakekey")

	cfg := &llmfactory.Config{
		Providers: []*llmfactory.ProviderConfig{
			{
				Name: "OPEN_AI",
				OpenAI: llmfactory.OpenAIConfig{
					APIType: "OPEN_AI",
				},
				AvailableModels: []string{"gpt-4o", "gpt-4-mini"},
				DefaultModel:    "gpt-4o",
			},
		},
	}

	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		return &fakeLLM{provider: cfg.Name, model: cfg.FindModel(preferredModels...)}, nil
	}
	defer func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	}()

	f := llmfactory.New(cfg)

	model1, err := f.ModelByType("OPEN_AI")
	require.NoError(t, err)
	require.NotNil(t, model1)

	model2, err := f.ModelByType("OPEN_AI")
	require.NoError(t, err)
	require.NotNil(t, model2)

	// Should be the same instance
	assert.Equal(t, model1, model2)

	model3, err := f.ModelByName("gpt-4-mini")
	require.NoError(t, err)
	require.NotNil(t, model3)

	model4, err := f.ModelByName("gpt-4-mini")
	require.NoError(t, err)
	require.NotNil(t, model4)

	assert.Equal(t, model3, model4)
}

// Test_ToolModelFallback tests tool model fallback scenarios
func Test_ToolModelFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "fakekey")

	cfg := &llmfactory.Config{
		Providers: []*llmfactory.ProviderConfig{
			{
				Name: "OPEN_AI",
				OpenAI: llmfactory.OpenAIConfig{
					APIType: "OPEN_AI",
				},
				AvailableModels: []string{"gpt-4", "gpt-4-mini"},
				DefaultModel:    "gpt-4",
			},
		},
		ToolModels: map[string][]string{
			"default":    {"gpt-4-mini"},
			"web_search": {"gpt-4-mini"},
		},
	}

	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		return &fakeLLM{provider: cfg.Name, model: cfg.FindModel(preferredModels...)}, nil
	}
	defer func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	}()

	f := llmfactory.New(cfg)

	model, err := f.ToolModel("web_search")
	require.NoError(t, err)
	require.NotNil(t, model)
	fm := model.(*fakeLLM)
	assert.Equal(t, "gpt-4-mini", fm.model)

	model, err = f.ToolModel("unknown_tool")
	require.NoError(t, err)
	require.NotNil(t, model)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4-mini", fm.model)

	// Preferred models do not override an explicit default mapping
	model, err = f.ToolModel("unknown_tool", "gpt-4")
	require.NoError(t, err)
	require.NotNil(t, model)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4-mini", fm.model)
}

// Test_ConcurrentAccess tests concurrent access to factory methods
func Test_ConcurrentAccess(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "fakekey")

	cfg := &llmfactory.Config{
		Providers: []*llmfactory.ProviderConfig{
			{
				Name: "OPEN_AI",
				OpenAI: llmfactory.OpenAIConfig{
					APIType: "OPEN_AI",
				},
				AvailableModels: []string{"gpt-4o", "gpt-4-mini"},
				DefaultModel:    "gpt-4o",
			},
		},
	}

	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		return &fakeLLM{provider: cfg.Name, model: cfg.FindModel(preferredModels...)}, nil
	}
	defer func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	}()

	f := llmfactory.New(cfg)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			model, err := f.ModelByType("OPEN_AI")
			assert.NoError(t, err)
			assert.NotNil(t, model)
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	for i := 0; i < 10; i++ {
		go func() {
			model, err := f.ModelByName("gpt-4-mini")
			assert.NoError(t, err)
			assert.NotNil(t, model)
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

// Test_ProviderConfigFindModel tests the FindModel method
func Test_ProviderConfigFindModel(t *testing.T) {
	cfg := &llmfactory.ProviderConfig{
		AvailableModels: []string{"gpt-4", "gpt-4-mini", "gpt-3.5-turbo"},
		DefaultModel:    "gpt-4",
	}

	model := cfg.FindModel("gpt-4-mini")
	assert.Equal(t, "gpt-4-mini", model)

	model = cfg.FindModel("gpt-4-mini", "gpt-3.5-turbo")
	assert.Equal(t, "gpt-4-mini", model)

	model = cfg.FindModel("non-existent-model")
	assert.Equal(t, "gpt-4", model)

	model = cfg.FindModel()
	assert.Equal(t, "gpt-4", model)

	cfg.AvailableModels = nil
	model = cfg.FindModel("gpt-4-mini")
	assert.Equal(t, "gpt-4", model)
}

type fakeLLM struct {
	provider string
	model    string
}

func (f *fakeLLM) GetName() string {
	return f.model
}

func (f *fakeLLM) GetProviderType() llms.ProviderType {
	return llms.ProviderType(f.provider)
}

func (f *fakeLLM) GenerateContent(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, nil
}
