//go:build integration

package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_PublishAnswer(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	ctx := context.Background()

	client, err := NewClient(ctx, natsURL, os.Getenv("NATS_TOKEN"), slog.Default())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	sub, err := client.conn.SubscribeSync(SubjectAnswerCompleted)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	err = client.PublishAnswer(ctx, AnswerEvent{
		RequestID: "integration-test",
		Model:     "gemma2:9b",
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("timed out waiting for message: %v", err)
	}
	var evt AnswerEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if evt.RequestID != "integration-test" {
		t.Errorf("expected integration-test request id, got %q", evt.RequestID)
	}
}
