// Package condense turns a chat history plus retrieved knowledge-base hits
// into the message sequence sent to the language model.
//
// Every function here is pure: inputs are never modified and the same input
// always produces the same output.
package condense

import (
	"strings"

	"github.com/MikeSquared-Agency/kbchat/internal/chat"
)

// Queries holds the retrieval queries derived from a history.
type Queries struct {
	UserQueries []string
	Combined    string
}

// All returns the queries in the order they are sent to retrieval: the user
// queries first, then the combined query. Combined is always present, even
// when empty.
func (q Queries) All() []string {
	out := make([]string, 0, len(q.UserQueries)+1)
	out = append(out, q.UserQueries...)
	return append(out, q.Combined)
}

// SelectQueries picks the content of the last userLookback user messages and
// joins the content of the last messageLookback messages of any role.
func SelectQueries(history []chat.Message, userLookback, messageLookback int) Queries {
	var users []string
	for _, m := range history {
		if m.Role == chat.RoleUser {
			users = append(users, m.Content)
		}
	}
	users = lastStrings(users, userLookback)

	var combined string
	if messageLookback > 0 {
		start := max(len(history)-messageLookback, 0)
		parts := make([]string, 0, len(history)-start)
		for _, m := range history[start:] {
			parts = append(parts, m.Content)
		}
		combined = strings.Join(parts, " ")
	}

	return Queries{UserQueries: users, Combined: combined}
}

func lastStrings(s []string, n int) []string {
	if n <= 0 {
		return []string{}
	}
	if len(s) > n {
		s = s[len(s)-n:]
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
