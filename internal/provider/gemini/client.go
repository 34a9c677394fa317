package gemini

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// ModelInfo contains metadata about a Gemini model from the SDK
type ModelInfo struct {
	Name             string
	InputTokenLimit  int
	OutputTokenLimit int
}

// ChatSession is a stateful conversation created by GeminiClient.CreateChat.
// It appends each successful exchange to its own history.
type ChatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient defines the interface for interacting with the Gemini API.
// This abstraction allows for easier testing and potential future implementations.
type GeminiClient interface {
	// CreateChat starts a chat seeded with history
	CreateChat(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (ChatSession, error)

	// ListModels returns a list of available model information
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// RealGeminiClient wraps the official SDK client to satisfy GeminiClient.
type RealGeminiClient struct {
	client *genai.Client
}

// NewRealGeminiClient creates a new RealGeminiClient from an SDK client.
func NewRealGeminiClient(client *genai.Client) *RealGeminiClient {
	return &RealGeminiClient{client: client}
}

// CreateChat calls the SDK's Chats.Create method.
func (c *RealGeminiClient) CreateChat(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (ChatSession, error) {
	chat, err := c.client.Chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// ListModels returns a list of available model information, filtered to only include gemini-* models
// (excluding embedding, image, audio, live, and robotic models)
func (c *RealGeminiClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	for model, err := range c.client.Models.All(ctx) {
		if err != nil {
			return nil, err
		}
		if isChatModel(model.Name) {
			models = append(models, ModelInfo{
				Name:             model.Name,
				InputTokenLimit:  int(model.InputTokenLimit),
				OutputTokenLimit: int(model.OutputTokenLimit),
			})
		}
	}
	return models, nil
}

func isChatModel(name string) bool {
	if !strings.HasPrefix(name, "models/gemini-") {
		return false
	}
	for _, excluded := range []string{"embedding", "image", "audio", "live", "robotic", "tts"} {
		if strings.Contains(name, excluded) {
			return false
		}
	}
	return true
}
