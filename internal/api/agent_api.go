package api

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/inkwell/blogmind/internal/agent"
	"github.com/inkwell/blogmind/internal/errs"
)

// StatusTracker records the generation worker's progress
type StatusTracker interface {
	Update(ctx context.Context, status agent.Status) error
	Snapshot() agent.Status
}

// GenerationLauncher starts generation runs
type GenerationLauncher interface {
	Trigger(ctx context.Context, topic string) (string, error)
}

// AgentAPI provides agent_api methods
type AgentAPI struct {
	tracker     StatusTracker
	launcher    GenerationLauncher
	agentSecret string
}

// NewAgentAPI creates the agent API
func NewAgentAPI(tracker StatusTracker, launcher GenerationLauncher, agentSecret string) *AgentAPI {
	return &AgentAPI{tracker: tracker, launcher: launcher, agentSecret: agentSecret}
}

// GetStatus handles agent_api.get_status
func (a *AgentAPI) GetStatus(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	if _, err := requireAdmin(c); err != nil {
		return nil, err
	}
	return a.tracker.Snapshot(), nil
}

// PushStatus handles agent_api.push_status
func (a *AgentAPI) PushStatus(c *gin.Context, params json.RawMessage) (interface{}, error) {
	if err := requireAgent(c, a.agentSecret); err != nil {
		return nil, err
	}
	var req struct {
		Status agent.State `json:"status"`
		Node   string      `json:"node"`
		Topic  string      `json:"topic"`
	}
	if err := DecodeParams(params, &req); err != nil {
		return nil, err
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, errs.Newf(errs.KindInvalid, "Unknown agent status %q", req.Status)
	}

	err := a.tracker.Update(c.Request.Context(), agent.Status{State: req.Status, Node: req.Node, Topic: req.Topic})
	if err != nil {
		return nil, err
	}
	return gin.H{"success": true}, nil
}

// Trigger handles agent_api.trigger
func (a *AgentAPI) Trigger(c *gin.Context, params json.RawMessage) (interface{}, error) {
	if _, err := requireAdmin(c); err != nil {
		return nil, err
	}
	var req struct {
		Topic string `json:"topic"`
	}
	if err := DecodeParams(params, &req); err != nil {
		return nil, err
	}

	topic, err := a.launcher.Trigger(c.Request.Context(), req.Topic)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"message": "Agent triggered successfully. It may take a few minutes to publish.",
		"topic":   topic,
	}, nil
}
