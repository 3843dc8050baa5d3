package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rahul4469/visionai/internal/imagecodec"
	"github.com/rahul4469/visionai/internal/models"
)

// DefaultVisionModel is used when no model is configured.
const DefaultVisionModel = "google/gemini-2.0-flash-001"

// AnalysisPrompt is sent with every image.
const AnalysisPrompt = "Analyze this food image. Return a JSON OBJECT. " +
	"Fields: name, health_score (0-100), calories (int), protein (int), carbs (int), fats (int), ingredients (list), health_summary. "

// InferenceClient talks to an OpenAI-compatible chat completions endpoint.
type InferenceClient struct {
	APIKey  string
	BaseURL string
	Model   string
	Client  *http.Client
}

// NewInferenceClient creates a client. Missing credentials are only reported
// when Analyze is called.
func NewInferenceClient(apiKey, baseURL, model string, timeout time.Duration) *InferenceClient {
	if model == "" {
		model = DefaultVisionModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &InferenceClient{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   model,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Request to the chat completions endpoint
type ChatRequest struct {
	Model          string         `json:"model"`
	Messages       []ChatMessage  `json:"messages"`
	ResponseFormat ResponseFormat `json:"response_format"`
}

// ChatMessage carries multimodal content parts.
type ChatMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is either a text part or an image_url part.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

// Response from the chat completions endpoint
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Analyze sends the base64 PNG to the model and returns the JSON object it
// answered with. A top-level array is reduced to its first element.
func (ic *InferenceClient) Analyze(ctx context.Context, encodedImage string) (map[string]any, error) {
	if err := ic.checkConfig(); err != nil {
		return nil, err
	}

	reqBody := ChatRequest{
		Model: ic.Model,
		Messages: []ChatMessage{
			{
				Role: "user",
				Content: []ContentPart{
					{Type: "text", Text: AnalysisPrompt},
					{Type: "image_url", ImageURL: &ImageURL{URL: imagecodec.DataURI(encodedImage)}},
				},
			},
		},
		ResponseFormat: ResponseFormat{Type: "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &models.InferenceError{Op: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ic.endpoint(), bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, &models.InferenceError{Op: "create request", Err: err}
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", ic.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := ic.Client.Do(req)
	if err != nil {
		return nil, &models.InferenceError{Op: "call API", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &models.InferenceError{
			Op:         "call API",
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, &models.InferenceError{Op: "decode response", Err: err}
	}
	if len(chatResp.Choices) == 0 {
		return nil, &models.InferenceError{Op: "decode response", Err: errors.New("no response choices")}
	}

	return ParseContent(chatResp.Choices[0].Message.Content)
}

// ParseContent resolves the model's message content to a JSON object.
func ParseContent(content string) (map[string]any, error) {
	content = strings.TrimSpace(content)
	if !gjson.Valid(content) {
		return nil, &models.InferenceError{Op: "parse content", Err: errors.New("content is not valid JSON")}
	}

	root := gjson.Parse(content)
	if root.IsArray() {
		first := root.Get("0")
		if !first.Exists() {
			return nil, &models.MalformedResponseError{Kind: "empty array"}
		}
		root = first
	}
	if !root.IsObject() {
		return nil, &models.MalformedResponseError{Kind: kindOf(root)}
	}

	obj, ok := root.Value().(map[string]interface{})
	if !ok {
		return nil, &models.MalformedResponseError{Kind: kindOf(root)}
	}
	return obj, nil
}

func (ic *InferenceClient) checkConfig() error {
	var missing []string
	if ic.APIKey == "" {
		missing = append(missing, "API key")
	}
	if ic.BaseURL == "" {
		missing = append(missing, "base URL")
	}
	if len(missing) > 0 {
		return &models.ConfigError{Missing: missing}
	}
	return nil
}

func (ic *InferenceClient) endpoint() string {
	return strings.TrimRight(ic.BaseURL, "/") + "/chat/completions"
}

func kindOf(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return "string"
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.Null:
		return "null"
	}
	if r.IsArray() {
		return "array"
	}
	return "unknown"
}
