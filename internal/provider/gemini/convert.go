package gemini

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Cyclone1070/mcpagent/internal/provider"
	"github.com/Cyclone1070/mcpagent/internal/tool"
	"google.golang.org/genai"
)

// toGeminiContents converts transcript messages to Gemini contents.
// Empty turns are skipped because the API rejects contents without parts.
func toGeminiContents(history []provider.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		if content := messageToGeminiContent(msg); content != nil {
			contents = append(contents, content)
		}
	}
	return contents
}

func messageToGeminiContent(msg provider.Message) *genai.Content {
	if msg.Content == "" {
		return nil
	}

	role := genai.RoleUser
	if msg.Role == provider.RoleModel {
		role = genai.RoleModel
	}

	return &genai.Content{
		Role:  role,
		Parts: []*genai.Part{{Text: msg.Content}},
	}
}

// toGeminiConfig builds the chat config shared by every channel of a provider.
func toGeminiConfig(opts options, decls []tool.Declaration) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SafetySettings: defaultSafetySettings(),
	}

	if opts.temperature != nil {
		t := *opts.temperature
		config.Temperature = &t
	}
	if opts.maxOutputTokens > 0 {
		config.MaxOutputTokens = opts.maxOutputTokens
	}
	if len(decls) > 0 {
		config.Tools = toGeminiTools(decls)
	}

	return config
}

// defaultSafetySettings returns safety settings with BLOCK_NONE for all categories.
func defaultSafetySettings() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: genai.HarmBlockThresholdOff,
		},
		{
			Category:  genai.HarmCategoryDangerousContent,
			Threshold: genai.HarmBlockThresholdOff,
		},
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: genai.HarmBlockThresholdOff,
		},
		{
			Category:  genai.HarmCategorySexuallyExplicit,
			Threshold: genai.HarmBlockThresholdOff,
		},
	}
}

// toGeminiTools converts catalog declarations to Gemini tools.
func toGeminiTools(decls []tool.Declaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}

	functionDeclarations := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, decl := range decls {
		fd := &genai.FunctionDeclaration{
			Name:        decl.Name,
			Description: decl.Description,
		}
		if decl.Parameters != nil {
			fd.Parameters = toGeminiSchema(decl.Parameters)
		}
		functionDeclarations = append(functionDeclarations, fd)
	}

	return []*genai.Tool{
		{FunctionDeclarations: functionDeclarations},
	}
}

// toGeminiSchema converts a normalized schema to Gemini Schema.
func toGeminiSchema(s *tool.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	schema := &genai.Schema{
		Type:        toGeminiType(s.Type),
		Description: s.Description,
		Format:      s.Format,
		Pattern:     s.Pattern,
	}

	if len(s.Enum) > 0 {
		// Gemini enums are strings only.
		schema.Enum = make([]string, len(s.Enum))
		for i, e := range s.Enum {
			schema.Enum[i] = e.Text()
		}
	}
	if len(s.Required) > 0 {
		schema.Required = append([]string(nil), s.Required...)
	}
	if s.Minimum != nil {
		v := *s.Minimum
		schema.Minimum = &v
	}
	if s.Maximum != nil {
		v := *s.Maximum
		schema.Maximum = &v
	}
	if s.Default != nil {
		schema.Default = s.Default.Interface()
	}

	if len(s.Properties) > 0 {
		schema.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			schema.Properties[name] = toGeminiSchema(prop)
		}
	}
	if s.Items != nil {
		schema.Items = toGeminiSchema(s.Items)
	}

	return schema
}

// toGeminiType converts a schema type to Gemini Type.
func toGeminiType(t tool.Type) genai.Type {
	switch t {
	case tool.TypeString:
		return genai.TypeString
	case tool.TypeNumber:
		return genai.TypeNumber
	case tool.TypeInteger:
		return genai.TypeInteger
	case tool.TypeBoolean:
		return genai.TypeBoolean
	case tool.TypeArray:
		return genai.TypeArray
	default:
		return genai.TypeObject
	}
}

// fromGeminiResponse converts Gemini response to internal format.
func fromGeminiResponse(resp *genai.GenerateContentResponse) (*provider.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeEmptyResponse,
			Message: "no candidates in response",
		}
	}

	candidate := resp.Candidates[0]

	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, &provider.ProviderError{
			Code:      provider.ErrorCodeContentBlocked,
			Message:   "content blocked by safety filters",
			Retryable: false,
		}
	}

	response := buildResponse(candidate)

	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		// Partial response is returned alongside the error
		return response, &provider.ProviderError{
			Code:      provider.ErrorCodeContextLength,
			Message:   "response truncated due to max tokens",
			Retryable: false,
		}
	}

	return response, nil
}

// buildResponse collects text and function calls from a candidate in part order.
func buildResponse(candidate *genai.Candidate) *provider.Response {
	response := &provider.Response{}
	if candidate.Content == nil {
		return response
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			response.Calls = append(response.Calls, provider.FunctionCall{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	response.Text = text.String()

	return response
}

// asAPIError finds a genai.APIError in err, whether it was returned by value or pointer.
func asAPIError(err error) (*genai.APIError, bool) {
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr, true
	}
	var val genai.APIError
	if errors.As(err, &val) {
		return &val, true
	}
	return nil, false
}

// mapGeminiError maps Gemini API errors to provider errors.
func mapGeminiError(err error) error {
	if err == nil {
		return nil
	}

	apiErr, ok := asAPIError(err)
	if !ok {
		return &provider.ProviderError{
			Code:       provider.ErrorCodeNetwork,
			Message:    "network error",
			Underlying: err,
			Retryable:  true,
		}
	}

	switch apiErr.Code {
	case 401, 403:
		return &provider.ProviderError{
			Code:       provider.ErrorCodeAuth,
			Message:    "authentication failed",
			Underlying: err,
			Retryable:  false,
		}
	case 429:
		return &provider.ProviderError{
			Code:       provider.ErrorCodeRateLimit,
			Message:    "rate limit exceeded",
			Underlying: err,
			Retryable:  true,
			RetryAfter: parseRetryAfter(apiErr),
		}
	case 400:
		code := provider.ErrorCodeInvalidRequest
		if strings.Contains(strings.ToLower(apiErr.Message), "token") {
			code = provider.ErrorCodeContextLength
		}
		return &provider.ProviderError{
			Code:       code,
			Message:    fmt.Sprintf("invalid request: %s", apiErr.Message),
			Underlying: err,
			Retryable:  false,
		}
	case 500, 502, 503, 504:
		return &provider.ProviderError{
			Code:       provider.ErrorCodeUnavailable,
			Message:    "service unavailable",
			Underlying: err,
			Retryable:  true,
		}
	default:
		return &provider.ProviderError{
			Code:       provider.ErrorCodeNetwork,
			Message:    fmt.Sprintf("API error: %s", apiErr.Message),
			Underlying: err,
			Retryable:  true,
		}
	}
}

var retryKeys = []string{"retryDelay", "retry_after", "retryAfter", "Retry-After"}

// parseRetryAfter looks for a retry hint in the error details.
// The first detail that carries one wins.
func parseRetryAfter(apiErr *genai.APIError) *time.Duration {
	if apiErr == nil {
		return nil
	}

	for _, detail := range apiErr.Details {
		if d := retryFromDetail(detail); d != nil {
			return d
		}
		if metadata, ok := detail["metadata"].(map[string]any); ok {
			if d := retryFromDetail(metadata); d != nil {
				return d
			}
		}
	}
	return nil
}

func retryFromDetail(detail map[string]any) *time.Duration {
	for _, key := range retryKeys {
		if v, ok := detail[key]; ok {
			if d := parseRetryValue(v); d != nil {
				return d
			}
		}
	}
	return nil
}

// parseRetryValue accepts seconds as a number or numeric string, a Go or
// protobuf-JSON duration string ("30s"), or a {seconds, nanos} map.
func parseRetryValue(v any) *time.Duration {
	switch val := v.(type) {
	case int:
		return secondsDuration(float64(val))
	case int64:
		return secondsDuration(float64(val))
	case float64:
		return secondsDuration(val)
	case string:
		if val == "" {
			return nil
		}
		if secs, err := strconv.ParseFloat(val, 64); err == nil {
			return secondsDuration(secs)
		}
		if d, err := time.ParseDuration(val); err == nil {
			return &d
		}
		return nil
	case map[string]any:
		secs, hasSecs := numberField(val["seconds"])
		nanos, hasNanos := numberField(val["nanos"])
		if !hasSecs && !hasNanos {
			return nil
		}
		d := time.Duration(secs*float64(time.Second)) + time.Duration(nanos)
		return &d
	default:
		return nil
	}
}

func numberField(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func secondsDuration(secs float64) *time.Duration {
	d := time.Duration(secs * float64(time.Second))
	return &d
}
