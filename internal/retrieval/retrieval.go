package retrieval

import (
	"context"

	"github.com/MikeSquared-Agency/kbchat/internal/chat"
)

// Retriever looks up knowledge-base question/answer pairs for a batch of
// queries. The outer slice has one entry per query, in query order.
type Retriever interface {
	Retrieve(ctx context.Context, queries []string, nResults int) ([][]chat.EvidenceItem, error)
}
