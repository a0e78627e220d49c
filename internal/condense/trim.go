package condense

import "github.com/MikeSquared-Agency/kbchat/internal/chat"

// TrimHistory builds the outbound message sequence. Only the last keep
// messages with the given role survive (keep <= 0 drops them all), the
// original last message is replaced by a user message carrying prompt, and
// every other message keeps its relative order.
func TrimHistory(history []chat.Message, role chat.Role, keep int, prompt string) []chat.Message {
	// Matching messages are counted over the whole history, the final
	// question included, so the earliest total-keep of them are dropped.
	total := 0
	for _, m := range history {
		if m.Role == role {
			total++
		}
	}
	drop := total - max(keep, 0)

	body := history
	if len(body) > 0 {
		body = body[:len(body)-1]
	}

	out := make([]chat.Message, 0, len(body)+1)
	for _, m := range body {
		if m.Role == role && drop > 0 {
			drop--
			continue
		}
		out = append(out, m)
	}

	return append(out, chat.Message{Role: chat.RoleUser, Content: prompt})
}
