package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/kbchat/internal/chat"
)

func TestRetrieve_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/get_answer/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Queries) != 2 || req.Queries[0] != "отпуск" {
			t.Errorf("unexpected queries: %v", req.Queries)
		}
		if req.NResults != 5 {
			t.Errorf("expected n_results 5, got %d", req.NResults)
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"results":[
			{"results":[{"question":"Как взять отпуск?","answer":"Через портал","distance":0.12}]},
			{"results":[]}
		]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", time.Second)

	got, err := c.Retrieve(context.Background(), []string{"отпуск", "отпуск когда"}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 result sets, got %d", len(got))
	}
	if len(got[0]) != 1 || got[0][0] != (chat.EvidenceItem{Question: "Как взять отпуск?", Answer: "Через портал"}) {
		t.Errorf("unexpected first result set: %+v", got[0])
	}
	if len(got[1]) != 0 {
		t.Errorf("expected empty second result set, got %+v", got[1])
	}
}

func TestRetrieve_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"Error processing query"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)

	_, err := c.Retrieve(context.Background(), []string{"q"}, 5)
	if !errors.Is(err, chat.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestRetrieve_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(url, time.Second)

	_, err := c.Retrieve(context.Background(), []string{"q"}, 5)
	if !errors.Is(err, chat.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestRetrieve_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `this is not json`},
		{name: "missing results", body: `{"answer":{"ids":[]}}`},
		{name: "wrong result count", body: `{"results":[{"results":[]},{"results":[]}]}`},
		{name: "missing inner results", body: `{"results":[{"hits":[]}]}`},
		{name: "missing answer", body: `{"results":[{"results":[{"question":"q"}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(server.URL, time.Second)

			_, err := c.Retrieve(context.Background(), []string{"q"}, 3)
			if !errors.Is(err, chat.ErrMalformedUpstream) {
				t.Fatalf("expected ErrMalformedUpstream, got %v", err)
			}
		})
	}
}

func TestRetrieve_EmptyStringsAreValid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"results":[{"question":"","answer":""}]}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)

	got, err := c.Retrieve(context.Background(), []string{""}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got[0]) != 1 {
		t.Errorf("expected one record, got %+v", got)
	}
}
