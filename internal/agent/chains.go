package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/sagekit/sage/internal/knowledge"
)

// groundedSystemPrompt is the system instruction of the context-grounded
// chain. It embeds today's date and the retrieved context block.
const groundedSystemPrompt = `You are sage, a personal AI assistant with access to the user's own data.
Today's date is %s.

%s

Answer the user's question directly and concisely. When the context contains
the answer, ground your reply in it. Never invent facts the context does not
support; say so when you don't know.`

// groundedContextHeader introduces retrieved chunks, best match first.
const groundedContextHeader = "Relevant excerpts from the user's data, most relevant first:"

// emptyContextNotice replaces the context block when the index is empty.
// The chain accepts empty context gracefully and degrades to no extra
// knowledge rather than failing.
const emptyContextNotice = "You have no extra knowledge about the user beyond this conversation."

// directSystemPrompt is the system instruction of the default chain:
// a plain conversational reply with no context slot.
const directSystemPrompt = `You are sage, a helpful conversational AI assistant.
Answer directly and concisely.`

// formatContext renders retrieved chunks as a single context block.
// Results are already in descending score order from the index.
func formatContext(results []knowledge.Result) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(groundedContextHeader)
	for _, r := range results {
		b.WriteString("\n---\n")
		b.WriteString(r.Chunk.Text)
	}
	return b.String()
}

// groundedMessages builds the context-grounded chain's prompt.
// An empty contextBlock degrades to the no-extra-knowledge notice.
func groundedMessages(question, contextBlock string, today time.Time) []*ai.Message {
	if contextBlock == "" {
		contextBlock = emptyContextNotice
	}
	system := fmt.Sprintf(groundedSystemPrompt, today.Format("2006-01-02"), contextBlock)

	return []*ai.Message{
		ai.NewMessage(ai.RoleSystem, nil, ai.NewTextPart(system)),
		ai.NewUserMessage(ai.NewTextPart(question)),
	}
}

// directMessages builds the default chain's prompt.
func directMessages(question string) []*ai.Message {
	return []*ai.Message{
		ai.NewMessage(ai.RoleSystem, nil, ai.NewTextPart(directSystemPrompt)),
		ai.NewUserMessage(ai.NewTextPart(question)),
	}
}
