package ai

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the retrieval prompt. Chunks are numbered from 1 so the
// model can cite them as "Source N".
func BuildPrompt(question string, chunks []string) string {
	blocks := make([]string, len(chunks))
	for i, chunk := range chunks {
		blocks[i] = fmt.Sprintf("Source %d:\n%s", i+1, chunk)
	}
	contextBlock := strings.Join(blocks, "\n\n")

	return fmt.Sprintf(`You are a helpful assistant that answers questions based on the provided context.

Context:
%s

Question: %s

Instructions:
- Answer the question using ONLY the information from the context above
- If the context doesn't contain enough information to answer, say so
- Be concise but complete
- Cite which source(s) you used (e.g., "According to Source 1...")

Answer:`, contextBlock, question)
}
