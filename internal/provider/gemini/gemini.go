package gemini

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Cyclone1070/mcpagent/internal/provider"
	"github.com/Cyclone1070/mcpagent/internal/tool"
	"google.golang.org/genai"
)

type options struct {
	temperature     *float32
	maxOutputTokens int32
}

// Option configures a GeminiProvider.
type Option func(*options)

// WithTemperature sets the sampling temperature for every channel.
func WithTemperature(t float32) Option {
	return func(o *options) { o.temperature = &t }
}

// WithMaxOutputTokens caps the length of each model reply.
func WithMaxOutputTokens(n int32) Option {
	return func(o *options) { o.maxOutputTokens = n }
}

// GeminiProvider implements provider.Model for Google Gemini.
type GeminiProvider struct {
	client    GeminiClient
	modelName string
	opts      options
	mu        sync.RWMutex
	models    []ModelInfo
}

var _ provider.Model = (*GeminiProvider)(nil)

// New creates a new GeminiProvider without validating the model name.
func New(client GeminiClient, modelName string, opts ...Option) *GeminiProvider {
	p := &GeminiProvider{
		client:    client,
		modelName: strings.TrimPrefix(modelName, "models/"),
	}
	for _, opt := range opts {
		opt(&p.opts)
	}
	return p
}

// NewGeminiProvider creates a provider after checking modelName against the
// models the API key can use.
func NewGeminiProvider(ctx context.Context, client GeminiClient, modelName string, opts ...Option) (*GeminiProvider, error) {
	models, err := client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	want := "models/" + strings.TrimPrefix(modelName, "models/")
	found := false
	for _, m := range models {
		if m.Name == want {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("invalid model: %s not found in available models", modelName)
	}

	p := New(client, modelName, opts...)
	p.models = models
	return p, nil
}

// NewGeminiProviderWithLatest creates a provider bound to the highest ranked
// available model.
func NewGeminiProviderWithLatest(ctx context.Context, client GeminiClient, opts ...Option) (*GeminiProvider, error) {
	models, err := client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no gemini models available")
	}

	sorted := sortModelsByVersion(models)
	p := New(client, sorted[0].Name, opts...)
	p.models = models
	return p, nil
}

// Open starts a Gemini chat seeded with history and the given tools.
func (p *GeminiProvider) Open(ctx context.Context, history []provider.Message, tools []tool.Declaration) (provider.Channel, error) {
	model := p.GetModel()

	config := toGeminiConfig(p.opts, tools)
	chat, err := p.client.CreateChat(ctx, model, config, toGeminiContents(history))
	if err != nil {
		return nil, mapGeminiError(err)
	}

	return &channel{chat: chat}, nil
}

// GetModel returns the currently active model name.
func (p *GeminiProvider) GetModel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modelName
}

// ListModels returns the available model names without the "models/" prefix.
// The first successful listing is cached.
func (p *GeminiProvider) ListModels(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	models := p.models
	p.mu.RUnlock()

	if models == nil {
		fetched, err := p.client.ListModels(ctx)
		if err != nil {
			return nil, mapGeminiError(err)
		}
		p.mu.Lock()
		p.models = fetched
		p.mu.Unlock()
		models = fetched
	}

	names := make([]string, 0, len(models))
	for _, m := range sortModelsByVersion(models) {
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
	return names, nil
}

type channel struct {
	chat ChatSession
}

// Send performs one roundtrip on the chat.
func (c *channel) Send(ctx context.Context, text string) (*provider.Response, error) {
	resp, err := c.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return nil, mapGeminiError(err)
	}
	return fromGeminiResponse(resp)
}

var versionPattern = regexp.MustCompile(`^(?:models/)?gemini-(\d+(?:\.\d+)?)`)

// extractVersion parses the numeric version out of a gemini model name.
func extractVersion(name string) (float64, bool) {
	m := versionPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// sortModelsByVersion ranks models: -latest aliases first, then higher
// version, then pro before other tiers. Ties keep their listing order.
func sortModelsByVersion(models []ModelInfo) []ModelInfo {
	sorted := append([]ModelInfo(nil), models...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Name, sorted[j].Name

		aLatest, bLatest := strings.HasSuffix(a, "-latest"), strings.HasSuffix(b, "-latest")
		if aLatest != bLatest {
			return aLatest
		}

		av, _ := extractVersion(a)
		bv, _ := extractVersion(b)
		if av != bv {
			return av > bv
		}

		aPro, bPro := strings.Contains(a, "-pro"), strings.Contains(b, "-pro")
		if aPro != bPro {
			return aPro
		}
		return false
	})
	return sorted
}
