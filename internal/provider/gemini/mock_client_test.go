package gemini

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// MockGeminiClient is a mock implementation of GeminiClient for testing.
type MockGeminiClient struct {
	CreateChatFunc func(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (ChatSession, error)
	ListModelsFunc func(ctx context.Context) ([]ModelInfo, error)
}

// CreateChat calls the mock function if set, otherwise returns an error.
func (m *MockGeminiClient) CreateChat(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (ChatSession, error) {
	if m.CreateChatFunc != nil {
		return m.CreateChatFunc(ctx, model, config, history)
	}
	return nil, errors.New("CreateChatFunc not set")
}

// ListModels calls the mock function if set, otherwise returns an error.
func (m *MockGeminiClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if m.ListModelsFunc != nil {
		return m.ListModelsFunc(ctx)
	}
	return nil, errors.New("ListModelsFunc not set")
}

// MockChatSession records sent parts and replies through SendMessageFunc.
type MockChatSession struct {
	SendMessageFunc func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
	Sent            []genai.Part
}

// SendMessage calls the mock function if set, otherwise returns an error.
func (m *MockChatSession) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	m.Sent = append(m.Sent, parts...)
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, parts...)
	}
	return nil, errors.New("SendMessageFunc not set")
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}
