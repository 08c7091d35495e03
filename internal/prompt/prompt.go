package prompt

import (
	"log"
	"os"
	"strings"

	"ds-tutor/internal/llm"
)

// RefusalText is what the tutor is instructed to answer for off-topic questions.
const RefusalText = "I specialize in Data Science. Please ask a relevant question."

// SystemInstruction is the tutor persona. Style constraints are advisory:
// nothing here checks that the model follows them.
const SystemInstruction = `You are an expert **Data Science Tutor**. Your goal is to provide **to-the-point** and **structured** answers.

**Guidelines for answering:**
- Keep responses **short, clear, and structured** (point-wise format).
- **Use examples** only when necessary.
- **Include Python code** **only if** it directly helps in understanding.
- If a question is **not related to Data Science**, reply with:
  *"` + RefusalText + `"*`

type Assembler struct {
	System string
}

func NewAssembler(system string) *Assembler {
	return &Assembler{System: system}
}

// Assemble returns system instruction + prior turns + the new query.
func (a *Assembler) Assemble(history []llm.Message, query string) []llm.Message {
	system := a.System
	if strings.TrimSpace(system) == "" {
		system = SystemInstruction
	}
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})
	return messages
}

// LoadSystemInstruction reads an instruction override from path, falling back
// to SystemInstruction when path is empty or unreadable.
func LoadSystemInstruction(path string) string {
	if path == "" {
		return SystemInstruction
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("system prompt file not found or unreadable at %s: %v", path, err)
		return SystemInstruction
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return SystemInstruction
}
