package shopassist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Chat sends one user message to the assistant within a session.
func (c *Client) Chat(ctx context.Context, sessionID, message string) (*ChatReply, error) {
	sp := c.obs.begin("chat")
	reply, err := c.chat(ctx, sessionID, message)
	var usage CallUsage
	if reply != nil {
		usage = reply.Usage
	}
	sp.end(err, false, usage)
	return reply, err
}

func (c *Client) chat(ctx context.Context, sessionID, message string) (*ChatReply, error) {
	if sessionID == "" || message == "" {
		return nil, errors.New("shopassist: session id and message required")
	}
	if c.userID == "" {
		return nil, errors.New("shopassist: user id required (use WithUserID)")
	}

	req := struct {
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
	}{sessionID, message}

	var reply ChatReply
	usage, err := c.do(ctx, http.MethodPost, "/v1/chat", nil, req, &reply)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	reply.Usage = usage
	return &reply, nil
}
