package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/whitelabel-ai/askai-service/internal/retrieval"
)

const (
	chatSystemPrompt = "Eres un asistente experto en n8n. Usa bloques ``` para código."
	askSystemPrompt  = "Eres un asistente de n8n. Devuelve solo código JavaScript válido, sin explicaciones y sin ```."
)

// BuildChatPrompt appends the retrieved sources and the node's current code
// to the user's text. Empty sections are left out.
func BuildChatPrompt(text string, results retrieval.Results, node *NodeContext) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(text))

	if !results.Empty() {
		b.WriteString("\n\nFuentes relevantes:")
		writeLinks(&b, "Documentación", results.Docs)
		writeLinks(&b, "Foro de la comunidad", results.Forum)
		if len(results.Templates) > 0 {
			b.WriteString("\n\nPlantillas:")
			for _, t := range results.Templates {
				fmt.Fprintf(&b, "\n- %s (%s)", t.Title, t.ImportURL)
			}
		}
	}

	if node != nil && node.OriginalCode != "" {
		fmt.Fprintf(&b, "\n\nCódigo actual del nodo:\n```%s\n%s\n```", node.Language, node.OriginalCode)
	}
	return b.String()
}

func writeLinks(b *strings.Builder, heading string, links []retrieval.SearchResult) {
	if len(links) == 0 {
		return
	}
	fmt.Fprintf(b, "\n\n%s:", heading)
	for _, l := range links {
		fmt.Fprintf(b, "\n- [%s](%s)", l.Title, l.URL)
	}
}

// BuildAskPrompt renders the node and context next to the question
func BuildAskPrompt(req AskRequest) string {
	return fmt.Sprintf("Nodo: %s\nContexto: %s\nPregunta: %s", compactJSON(req.ForNode), compactJSON(req.Context), req.Question)
}

// compactJSON renders an optional JSON value on one line, "null" when absent
func compactJSON(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}
