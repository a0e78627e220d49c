package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/kbchat/internal/chat"
)

const chatPath = "/api/chat"

type Client struct {
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

func NewClient(baseURL, model string, temperature float64, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		client:      &http.Client{Timeout: timeout},
	}
}

// Model returns the model identifier sent with every request.
func (c *Client) Model() string {
	return c.model
}

type options struct {
	Temperature float64 `json:"temperature"`
}

type request struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  options        `json:"options"`
}

type response struct {
	Model   string `json:"model"`
	Message *struct {
		Role    *string `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

// Chat sends the conversation to the model and returns its single,
// non-streamed reply.
func (c *Client) Chat(ctx context.Context, messages []chat.Message) (chat.Message, error) {
	reqBody := request{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  options{Temperature: c.temperature},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return chat.Message{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return chat.Message{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: api call: %w", chat.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: read response: %w", chat.ErrModelUnavailable, err)
	}

	var apiResp response
	decodeErr := json.Unmarshal(respBody, &apiResp)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && apiResp.Error != "" {
			return chat.Message{}, fmt.Errorf("%w: api error %d: %s", chat.ErrModelUnavailable, resp.StatusCode, apiResp.Error)
		}
		return chat.Message{}, fmt.Errorf("%w: api error %d: %s", chat.ErrModelUnavailable, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if decodeErr != nil {
		return chat.Message{}, fmt.Errorf("%w: unmarshal response: %w", chat.ErrMalformedUpstream, decodeErr)
	}
	if apiResp.Error != "" {
		return chat.Message{}, fmt.Errorf("%w: %s", chat.ErrModelUnavailable, apiResp.Error)
	}
	if apiResp.Message == nil || apiResp.Message.Content == nil {
		return chat.Message{}, fmt.Errorf("%w: response has no message content", chat.ErrMalformedUpstream)
	}

	role := chat.RoleAssistant
	if apiResp.Message.Role != nil && *apiResp.Message.Role != "" {
		role = chat.Role(*apiResp.Message.Role)
	}
	return chat.Message{Role: role, Content: *apiResp.Message.Content}, nil
}
