// Package chat assembles assistant replies for the editor's chat panel and
// its one-shot code generation.
package chat

import "encoding/json"

// RoleAssistant is the role of every message the service emits
const RoleAssistant = "assistant"

// MessageType discriminates the Message variants
type MessageType string

const (
	TypeTool     MessageType = "tool"
	TypeMessage  MessageType = "message"
	TypeBlock    MessageType = "block"
	TypeCodeDiff MessageType = "code-diff"
	TypeError    MessageType = "error"
)

// Tool statuses
const (
	ToolRunning   = "running"
	ToolCompleted = "completed"
)

// QuickReplyType names the follow-up actions a client can offer
type QuickReplyType string

const (
	ReplyNewSuggestion QuickReplyType = "new-suggestion"
	ReplyResolved      QuickReplyType = "resolved"
)

// QuickReply is a canned follow-up offered under a message
type QuickReply struct {
	Type       QuickReplyType `json:"type"`
	Text       string         `json:"text"`
	IsFeedback bool           `json:"isFeedback,omitempty"`
}

// ToolUpdate carries the input or output of a tool run
type ToolUpdate struct {
	Type string `json:"type"` // "input" or "output"
	Data any    `json:"data"`
}

// Message is one item of a chat reply. Type selects which fields apply:
//
//	tool:      ToolName, DisplayTitle, Status, Updates
//	message:   Text, CodeSnippet, QuickReplies
//	block:     Title, Content
//	code-diff: Description, CodeDiff, SuggestionID, QuickReplies
//	error:     Content
type Message struct {
	Role string      `json:"role"`
	Type MessageType `json:"type"`

	ToolName     string       `json:"toolName,omitempty"`
	DisplayTitle string       `json:"displayTitle,omitempty"`
	Status       string       `json:"status,omitempty"`
	Updates      []ToolUpdate `json:"updates,omitempty"`

	Text        string `json:"text,omitempty"`
	CodeSnippet string `json:"codeSnippet,omitempty"`

	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`

	Description  string `json:"description,omitempty"`
	CodeDiff     string `json:"codeDiff,omitempty"`
	SuggestionID string `json:"suggestionId,omitempty"`

	QuickReplies []QuickReply `json:"quickReplies,omitempty"`
}

// TextMessage is a plain assistant message
func TextMessage(text string) Message {
	return Message{Role: RoleAssistant, Type: TypeMessage, Text: text}
}

// CodeMessage is an assistant message carrying a code snippet
func CodeMessage(code string) Message {
	return Message{Role: RoleAssistant, Type: TypeMessage, CodeSnippet: code}
}

// BlockMessage is a titled markdown block
func BlockMessage(title, content string) Message {
	return Message{Role: RoleAssistant, Type: TypeBlock, Title: title, Content: content}
}

// CodeDiffMessage proposes replacing a node's code
func CodeDiffMessage(description, diff, suggestionID string, replies []QuickReply) Message {
	return Message{
		Role:         RoleAssistant,
		Type:         TypeCodeDiff,
		Description:  description,
		CodeDiff:     diff,
		SuggestionID: suggestionID,
		QuickReplies: replies,
	}
}

// ErrorMessage reports a failed turn
func ErrorMessage(content string) Message {
	return Message{Role: RoleAssistant, Type: TypeError, Content: content}
}

// ToolMessage reports the progress of one retrieval source
func ToolMessage(name, title, status string, updates ...ToolUpdate) Message {
	return Message{
		Role:         RoleAssistant,
		Type:         TypeTool,
		ToolName:     name,
		DisplayTitle: title,
		Status:       status,
		Updates:      updates,
	}
}

// NodeContext describes the workflow node the user is editing
type NodeContext struct {
	// OriginalCode is the node's current code; a code-diff is proposed
	// only when it is non-empty
	OriginalCode string `json:"originalCode,omitempty"`
	// Language hints which generated block to prefer
	Language string `json:"language,omitempty"`
	NodeName string `json:"nodeName,omitempty"`
	NodeType string `json:"nodeType,omitempty"`
}

// LanguageHint returns the explicit language or, failing that, the node type
func (c *NodeContext) LanguageHint() string {
	if c == nil {
		return ""
	}
	if c.Language != "" {
		return c.Language
	}
	return c.NodeType
}

// ChatPayload is the structured part of a chat request
type ChatPayload struct {
	Text    string       `json:"text,omitempty"`
	Type    string       `json:"type,omitempty"`
	Context *NodeContext `json:"context,omitempty"`
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	SessionID string      `json:"sessionId,omitempty"`
	Payload   ChatPayload `json:"payload"`
	Question  string      `json:"question,omitempty"`
}

// UserText returns payload.text, else the top-level question
func (r *ChatRequest) UserText() string {
	if r.Payload.Text != "" {
		return r.Payload.Text
	}
	return r.Question
}

// originalCode returns the node code to diff against, if any
func (r *ChatRequest) originalCode() string {
	if r.Payload.Context == nil {
		return ""
	}
	return r.Payload.Context.OriginalCode
}

// ChatResponse is the body returned by POST /chat
type ChatResponse struct {
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`
}

// AskRequest is the body of POST /ask-ai
type AskRequest struct {
	Question string          `json:"question"`
	Context  json.RawMessage `json:"context,omitempty"`
	ForNode  json.RawMessage `json:"forNode,omitempty"`
}

// AskResponse is the body returned by POST /ask-ai
type AskResponse struct {
	Code string `json:"code"`
}

// ApplyRequest is the body of POST /chat/apply-suggestion
type ApplyRequest struct {
	SessionID    string `json:"sessionId"`
	SuggestionID string `json:"suggestionId"`
}

// ApplyResponse carries the node parameters to write back
type ApplyResponse struct {
	SessionID  string          `json:"sessionId"`
	Parameters ApplyParameters `json:"parameters"`
}

// ApplyParameters are the node parameters replaced by a suggestion
type ApplyParameters struct {
	JSCode string `json:"jsCode"`
}
