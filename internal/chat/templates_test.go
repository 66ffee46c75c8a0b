package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitelabel-ai/askai-service/internal/retrieval"
)

func TestWantsTemplates(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"busca plantillas de slack", true},
		{"Template for gmail", true},
		{"un WORKFLOW de ejemplo", true},
		{"mis workflows", false},
		{"como uso el nodo code", false},
		{"templating engine", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, WantsTemplates(tt.query))
		})
	}
}

func TestTemplateResponder_Respond(t *testing.T) {
	var r TemplateResponder

	_, ok := r.Respond("plantillas", nil)
	assert.False(t, ok)

	_, ok = r.Respond("hola", slackTemplates())
	assert.False(t, ok)

	many := append(slackTemplates(), slackTemplates()...)
	messages, ok := r.Respond("plantillas", many)
	require.True(t, ok)
	require.Len(t, messages, 2)

	block := messages[0]
	assert.Equal(t, TypeBlock, block.Type)
	assert.Equal(t, 3, strings.Count(block.Content, "### 📄"))
	assert.Equal(t, 2, strings.Count(block.Content, "\n\n---\n\n"))

	guide := messages[1]
	assert.Equal(t, "Aquí tienes plantillas listas para importar en tu instancia.", guide.Text)
	assert.Equal(t, []QuickReply{
		{Type: ReplyNewSuggestion, Text: "Buscar más plantillas"},
		{Type: ReplyResolved, Text: "Listo, gracias", IsFeedback: true},
	}, guide.QuickReplies)
}

func TestRenderTemplate(t *testing.T) {
	plain := renderTemplate(retrieval.TemplateResult{
		SearchResult: retrieval.SearchResult{Title: "Digest"},
		ImportURL:    "https://import/1",
	})
	assert.Equal(t, "### 📄 Digest\n_Workflow listo para usar._\n\n➡️ **[⬇️ Importar en tu n8n](https://import/1)**", plain)

	long := renderTemplate(retrieval.TemplateResult{
		SearchResult: retrieval.SearchResult{Title: "Long"},
		Summary:      strings.Repeat("ñ", 200),
	})
	assert.Contains(t, long, "\n_"+strings.Repeat("ñ", 160)+"..._")
	assert.NotContains(t, long, strings.Repeat("ñ", 161))
}

func TestBuildChatPrompt(t *testing.T) {
	assert.Equal(t, "hola", BuildChatPrompt(" hola ", retrieval.Results{}, nil))

	prompt := BuildChatPrompt("pregunta", retrieval.Results{
		Templates: []retrieval.TemplateResult{{SearchResult: retrieval.SearchResult{Title: "T"}, ImportURL: "https://i/1"}},
	}, &NodeContext{OriginalCode: "return 1", Language: "javascript"})

	assert.Contains(t, prompt, "Fuentes relevantes:")
	assert.Contains(t, prompt, "Plantillas:\n- T (https://i/1)")
	assert.NotContains(t, prompt, "Documentación:")
	assert.True(t, strings.HasSuffix(prompt, "```javascript\nreturn 1\n```"))
}
