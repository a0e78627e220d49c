package condense

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/kbchat/internal/chat"
)

const promptHeader = "Вопрос от пользователя: \"%s\"\n\nРелевантные вопросы и ответы из базы знаний:\n"

const promptFooter = `
Задача: Основываясь на вспомогательных материалах корпоративной базы знаний компании x5 retail group, развёрнуто и чётко ответить на вопрос пользователя.
Важно, что вспомогательные данные не всегда ранжированы по релевантности.
Среди примеров может не быть верного ответа!
Если ты считаешь, вопрос пользователя релевантен вопросу из базы знаний, дай соответствующий ответ.
Тебе необходимо ответить на вопрос. Объяснять, почему ты выбрал именно это вариант из базы не нужно.
Если ты считаешь, что в предоставленных данных не содержится ответа на вопрос, то нужно ответить, что тебе дали слишком мало конкретики. Попроси описать проблему подробнее.
Если в вспомогательных данных есть несколько вопросов, которые релевантны данному, задай уточняющий вопрос, чтобы понять, какой из вопросов больше подходит.
При ответе на вопрос ничего лишнего не пиши. Только сам ответ или уточняющее предложение.
Ответ должен быть полным, как в базе знаний. Из базы знаний нужно выбрать лишь один ответ!
Отвечай только на русском языке.`

// ComposePrompt renders the grounding prompt for question and evidence.
func ComposePrompt(question string, evidence []chat.GroupedEvidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, promptHeader, question)

	for i, group := range evidence {
		if len(group.Questions) > 1 {
			fmt.Fprintf(&b, "#%d. Для вопросов: %s\n", i+1, quoteAll(group.Questions))
		} else {
			fmt.Fprintf(&b, "#%d. %s\n", i+1, quoteAll(group.Questions))
		}
		fmt.Fprintf(&b, "   Ответ: %s\n\n", group.Answer)
	}

	b.WriteString(promptFooter)
	return b.String()
}

func quoteAll(questions []string) string {
	quoted := make([]string, len(questions))
	for i, q := range questions {
		quoted[i] = `"` + q + `"`
	}
	return strings.Join(quoted, ", ")
}
