package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/menulex/allergo/pkg/allergo/suggest"
)

// Client calls an OpenAI-compatible chat completion endpoint and parses
// ingredient term candidates from the reply. It satisfies
// suggest.Collaborator.
type Client struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

const systemPrompt = `You extract food ingredient terms from dish descriptions. Respond with ONLY a JSON array of objects, each with "term" (lowercase string) and "score" (0 to 1). No prose.`

// SuggestTerms asks the model for ingredient candidates in the given dish
// text. The prompt is built by the caller so its hash stays stable.
func (c *Client) SuggestTerms(ctx context.Context, model, prompt string) ([]suggest.Candidate, error) {
	if c.BaseURL == "" || model == "" {
		return nil, fmt.Errorf("llm: base URL and model required")
	}
	messages := []chatMessage{{Role: "system", Content: systemPrompt}, {Role: "user", Content: prompt}}
	payload, err := c.send(ctx, model, messages)
	if err != nil {
		return nil, err
	}
	if len(payload.Choices) == 0 {
		return nil, fmt.Errorf("llm: empty response")
	}
	return parseCandidates(payload.Choices[0].Message.Content)
}

func (c *Client) send(ctx context.Context, model string, messages []chatMessage) (*chatResponse, error) {
	reqBody, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("llm error: %s", payload.Error.Message)
	}
	return &payload, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

// parseCandidates decodes the model reply. Models sometimes wrap JSON in a
// markdown code fence despite instructions, so fences are stripped first.
func parseCandidates(content string) ([]suggest.Candidate, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	var candidates []suggest.Candidate
	if err := json.Unmarshal([]byte(content), &candidates); err != nil {
		return nil, fmt.Errorf("llm: malformed candidate list: %w", err)
	}

	out := candidates[:0]
	for _, cand := range candidates {
		cand.Term = strings.TrimSpace(strings.ToLower(cand.Term))
		if cand.Term == "" {
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}
