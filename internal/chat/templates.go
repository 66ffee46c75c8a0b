package chat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/whitelabel-ai/askai-service/internal/retrieval"
)

const (
	// TemplatesTitle heads the templates block
	TemplatesTitle = "Plantillas encontradas"

	templatesGuide     = "Aquí tienes plantillas listas para importar en tu instancia."
	defaultSummary     = "_Workflow listo para usar._"
	maxShownTemplates  = 3
	maxSummaryRunes    = 160
	templatesSeparator = "\n\n---\n\n"
)

var templateIntent = regexp.MustCompile(`(?i)\b(template|templates|plantilla|plantillas|workflow)\b`)

// templateReplies are offered under the templates guide
var templateReplies = []QuickReply{
	{Type: ReplyNewSuggestion, Text: "Buscar más plantillas"},
	{Type: ReplyResolved, Text: "Listo, gracias", IsFeedback: true},
}

// WantsTemplates reports whether query asks for templates or workflows
func WantsTemplates(query string) bool {
	return templateIntent.MatchString(query)
}

// TemplateResponder answers template requests straight from the catalog
type TemplateResponder struct{}

// Respond returns the templates block and guide message when query asks
// for templates and some were found. ok is false otherwise and the turn
// continues to the completion provider.
func (TemplateResponder) Respond(query string, templates []retrieval.TemplateResult) (messages []Message, ok bool) {
	if len(templates) == 0 || !WantsTemplates(query) {
		return nil, false
	}

	shown := templates
	if len(shown) > maxShownTemplates {
		shown = shown[:maxShownTemplates]
	}

	entries := make([]string, 0, len(shown))
	for _, t := range shown {
		entries = append(entries, renderTemplate(t))
	}

	guide := TextMessage(templatesGuide)
	guide.QuickReplies = append([]QuickReply(nil), templateReplies...)

	return []Message{
		BlockMessage(TemplatesTitle, strings.Join(entries, templatesSeparator)),
		guide,
	}, true
}

func renderTemplate(t retrieval.TemplateResult) string {
	summary := defaultSummary
	if t.Summary != "" {
		summary = "\n_" + truncateRunes(t.Summary, maxSummaryRunes) + "..._"
	}
	return fmt.Sprintf("### 📄 %s\n%s\n\n➡️ **[⬇️ Importar en tu n8n](%s)**", t.Title, summary, t.ImportURL)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
