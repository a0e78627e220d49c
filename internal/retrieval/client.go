package retrieval

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

const answerPath = "/api/v1/get_answer/"

// Client queries the vector-store service over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type request struct {
	Queries  []string `json:"queries"`
	NResults int      `json:"n_results"`
}

// record fields are pointers so a missing field can be told apart from an
// empty string.
type record struct {
	Question *string  `json:"question"`
	Answer   *string  `json:"answer"`
	Distance *float64 `json:"distance,omitempty"`
}

type response struct {
	Results []struct {
		Results *[]record `json:"results"`
	} `json:"results"`
}

// Retrieve implements Retriever.
func (c *Client) Retrieve(ctx context.Context, queries []string, nResults int) ([][]chat.EvidenceItem, error) {
	body, err := json.Marshal(request{Queries: queries, NResults: nResults})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+answerPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieval call: %w", chat.ErrRetrievalUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", chat.ErrRetrievalUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", chat.ErrRetrievalUnavailable, resp.StatusCode, truncate(respBody))
	}

	return decodeResults(respBody, len(queries))
}

func decodeResults(body []byte, queries int) ([][]chat.EvidenceItem, error) {
	var decoded response
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: unmarshal retrieval response: %w", chat.ErrMalformedUpstream, err)
	}
	if decoded.Results == nil {
		return nil, fmt.Errorf("%w: retrieval response has no results", chat.ErrMalformedUpstream)
	}
	if len(decoded.Results) != queries {
		return nil, fmt.Errorf("%w: expected %d result sets, got %d", chat.ErrMalformedUpstream, queries, len(decoded.Results))
	}

	out := make([][]chat.EvidenceItem, len(decoded.Results))
	for i, set := range decoded.Results {
		if set.Results == nil {
			return nil, fmt.Errorf("%w: result set %d has no results", chat.ErrMalformedUpstream, i)
		}
		items := make([]chat.EvidenceItem, 0, len(*set.Results))
		for j, r := range *set.Results {
			if r.Question == nil || r.Answer == nil {
				return nil, fmt.Errorf("%w: result %d/%d is missing question or answer", chat.ErrMalformedUpstream, i, j)
			}
			items = append(items, chat.EvidenceItem{Question: *r.Question, Answer: *r.Answer})
		}
		out[i] = items
	}
	return out, nil
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 512 {
		return s[:512] + "..."
	}
	return s
}
