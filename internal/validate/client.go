package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lakeops/bridge/internal/config"
)

// Fixed decoding parameters for validation runs
const (
	maxNewTokens = 800
	temperature  = 0.3
)

// inferenceRequest is the hosted inference API request body
type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

// inferenceResponse is one element of the API's response array
type inferenceResponse struct {
	GeneratedText string `json:"generated_text"`
}

type inferenceError struct {
	Error string `json:"error"`
}

// inferenceClient calls a hosted text-generation endpoint
type inferenceClient struct {
	baseURL string
	model   string
	token   string
	client  *http.Client
}

func newInferenceClient(cfg config.ValidationConfig) *inferenceClient {
	return &inferenceClient{
		baseURL: strings.TrimRight(cfg.Endpoint, "/"),
		model:   cfg.Model,
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Generate runs one text-generation call and returns the model's text
func (c *inferenceClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(inferenceRequest{
		Inputs: prompt,
		Parameters: inferenceParameters{
			MaxNewTokens:   maxNewTokens,
			Temperature:    temperature,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/models/" + c.model
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr inferenceError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return "", fmt.Errorf("inference error: %s", apiErr.Error)
		}
		return "", fmt.Errorf("http error %d: %s", httpResp.StatusCode, string(respBody))
	}

	var decoded []inferenceResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(decoded) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	return decoded[0].GeneratedText, nil
}
