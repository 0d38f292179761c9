// Package conversation runs the tool-use loop between the shopper, the model and the router.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/chat"
	"github.com/kailas-cloud/shopassist/internal/domain/fcall"
	"github.com/kailas-cloud/shopassist/internal/logger"
)

// DefaultSystemPrompt frames the assistant for the model.
const DefaultSystemPrompt = `You are a shopping assistant for neighbourhood shops.
Use intelligentSearch to find products near the shopper, then addItemsToCart with the shopId and itemId you found.
Never invent shop or item ids. Items from different shops go to separate carts with separate delivery fees.
Before placeOrder make sure a delivery address with a landmark is set; when an order fails, explain the problem
and what the shopper can do, the cart is kept. Prices are in minor currency units (cents). Keep replies short.`

// Config tunes the loop.
type Config struct {
	MaxRounds    int
	SystemPrompt string
	Temperature  float32
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{MaxRounds: 5, SystemPrompt: DefaultSystemPrompt, Temperature: 0.2}
}

// ToolResult records one executed function call.
type ToolResult struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Result    fcall.Result    `json:"result"`
}

// Reply is the assistant answer to one shopper message.
type Reply struct {
	SessionID   string       `json:"sessionId"`
	Message     string       `json:"message"`
	ToolResults []ToolResult `json:"toolResults"`
	Rounds      int          `json:"rounds"`
}

// Manager owns conversations.
type Manager struct {
	llm      Completer
	exec     Executor
	sessions Sessions
	tools    []chat.Tool
	cfg      Config
}

// New creates a Manager. Zero config fields take DefaultConfig values.
func New(llm Completer, exec Executor, sessions Sessions, tools []chat.Tool, cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = def.MaxRounds
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = def.SystemPrompt
	}
	return &Manager{llm: llm, exec: exec, sessions: sessions, tools: tools, cfg: cfg}
}

// Send handles one shopper message. After MaxRounds of tool use the model is asked
// for a final answer without tools.
func (m *Manager) Send(ctx context.Context, sessionID, userID, text string) (Reply, error) {
	log := logger.FromContext(ctx).With(zap.String("session_id", sessionID))

	if err := m.sessions.Claim(ctx, sessionID, userID); err != nil {
		return Reply{}, fmt.Errorf("claim session: %w", err)
	}
	history, err := m.sessions.History(ctx, sessionID)
	if err != nil {
		return Reply{}, fmt.Errorf("load history: %w", err)
	}
	history = fromFirstUserTurn(history)

	turn := []chat.Message{{Role: chat.RoleUser, Content: strings.TrimSpace(text)}}
	reply := Reply{SessionID: sessionID, ToolResults: []ToolResult{}}

	for reply.Rounds < m.cfg.MaxRounds {
		reply.Rounds++
		msg, err := m.complete(ctx, history, turn, m.tools)
		if err != nil {
			return Reply{}, err
		}
		turn = append(turn, msg)
		if len(msg.ToolCalls) == 0 {
			reply.Message = msg.Content
			m.save(ctx, log, sessionID, turn)
			return reply, nil
		}
		turn = append(turn, m.runTools(ctx, userID, msg.ToolCalls, &reply)...)
	}

	log.Warn("Tool rounds exhausted", zap.Int("rounds", reply.Rounds))
	msg, err := m.complete(ctx, history, turn, nil)
	if err != nil {
		return Reply{}, err
	}
	turn = append(turn, msg)
	reply.Message = msg.Content
	m.save(ctx, log, sessionID, turn)
	return reply, nil
}

func (m *Manager) complete(ctx context.Context, history, turn []chat.Message, tools []chat.Tool) (chat.Message, error) {
	msgs := make([]chat.Message, 0, len(history)+len(turn)+1)
	msgs = append(msgs, chat.Message{Role: chat.RoleSystem, Content: m.cfg.SystemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, turn...)

	res, err := m.llm.Complete(ctx, chat.Request{Messages: msgs, Tools: tools, Temperature: m.cfg.Temperature})
	if err != nil {
		return chat.Message{}, fmt.Errorf("complete: %w", err)
	}
	msg := res.Message
	msg.Role = chat.RoleAssistant
	if len(msg.ToolCalls) == 0 && strings.TrimSpace(msg.Content) == "" {
		return chat.Message{}, fmt.Errorf("empty reply: %w", domain.ErrLLMUnavailable)
	}
	return msg, nil
}

// runTools executes calls in the order the model issued them.
func (m *Manager) runTools(ctx context.Context, userID string, calls []chat.ToolCall, reply *Reply) []chat.Message {
	out := make([]chat.Message, 0, len(calls))
	for _, tc := range calls {
		res := m.exec.Execute(ctx, userID, tc.Name, json.RawMessage(tc.Arguments))
		reply.ToolResults = append(reply.ToolResults, ToolResult{Name: tc.Name, Arguments: echoArguments(tc.Arguments), Result: res})

		content, err := json.Marshal(res)
		if err != nil {
			content = []byte(`{"success":false,"error":"result could not be encoded","code":"internal_error"}`)
		}
		out = append(out, chat.Message{Role: chat.RoleTool, ToolCallID: tc.ID, Name: tc.Name, Content: string(content)})
	}
	return out
}

func (m *Manager) save(ctx context.Context, log *zap.Logger, sessionID string, turn []chat.Message) {
	if err := m.sessions.Append(ctx, sessionID, turn...); err != nil {
		log.Warn("History not saved", zap.Error(err))
	}
}

// echoArguments keeps well-formed model arguments as JSON and quotes anything else as a string.
func echoArguments(raw string) json.RawMessage {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	quoted, err := json.Marshal(raw)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return quoted
}

// fromFirstUserTurn drops leading messages left without their user turn by history trimming,
// so no tool result is sent without the call that produced it.
func fromFirstUserTurn(history []chat.Message) []chat.Message {
	for i, msg := range history {
		if msg.Role == chat.RoleUser {
			return history[i:]
		}
	}
	return nil
}
