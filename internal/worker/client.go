// Package worker talks to the out-of-process agent service that indexes
// posts, answers questions and generates new posts.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/inkwell/blogmind/pkg/config"
	"github.com/inkwell/blogmind/pkg/logging"
	"github.com/inkwell/blogmind/pkg/telemetry"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics
const maxErrorBody = 2048

// StatusError is a non-2xx answer from the worker
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("worker returned status %d", e.Status)
	}
	return fmt.Sprintf("worker returned status %d: %s", e.Status, e.Body)
}

type indexRequest struct {
	BlogID string `json:"blog_id"`
	Text   string `json:"text"`
}

type indexResponse struct {
	Success *bool  `json:"success"`
	BlogID  string `json:"blog_id"`
}

type queryRequest struct {
	BlogID   string `json:"blog_id"`
	Question string `json:"question"`
}

type queryResponse struct {
	Answer *string `json:"answer"`
}

type generateRequest struct {
	Topic string `json:"topic"`
}

// Client is an HTTP client for the agent service
type Client struct {
	baseURL    string
	httpClient *http.Client
	cfg        config.WorkerConfig
	logger     *zap.Logger
}

// NewClient creates a worker client. Per-call deadlines come from the
// caller's context; the transport itself has no global timeout.
func NewClient(cfg *config.WorkerConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cfg:    *cfg,
		logger: logging.WithComponent("worker-client"),
	}
}

// Index asks the worker to build retrieval data for a post. It returns nil
// only when the worker acknowledged success.
func (c *Client) Index(ctx context.Context, postID, text string) error {
	ctx, span := telemetry.StartSpan(ctx, "worker.index")
	defer span.End()
	span.SetAttributes(attribute.String("post_id", postID))

	var resp indexResponse
	if err := c.post(ctx, "/index", indexRequest{BlogID: postID, Text: text}, &resp); err != nil {
		telemetry.Fail(span, err)
		return err
	}
	if resp.Success != nil && !*resp.Success {
		err := fmt.Errorf("worker did not acknowledge indexing of %s", postID)
		telemetry.Fail(span, err)
		return err
	}
	return nil
}

// Query asks the worker to answer question about an indexed post
func (c *Client) Query(ctx context.Context, postID, question string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "worker.query")
	defer span.End()
	span.SetAttributes(attribute.String("post_id", postID))

	var resp queryResponse
	if err := c.post(ctx, "/query", queryRequest{BlogID: postID, Question: question}, &resp); err != nil {
		telemetry.Fail(span, err)
		return "", err
	}
	if resp.Answer == nil {
		err := fmt.Errorf("worker response has no answer")
		telemetry.Fail(span, err)
		return "", err
	}
	return *resp.Answer, nil
}

// Generate starts background generation of a post about topic. The worker
// answers as soon as the job is accepted.
func (c *Client) Generate(ctx context.Context, topic string) error {
	ctx, span := telemetry.StartSpan(ctx, "worker.generate")
	defer span.End()
	span.SetAttributes(attribute.String("topic", topic))

	if c.cfg.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.GenerateTimeout)
		defer cancel()
	}

	if err := c.post(ctx, "/generate", generateRequest{Topic: topic}, nil); err != nil {
		telemetry.Fail(span, err)
		return err
	}
	return nil
}

// Health checks that the worker is up
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Worker request failed",
			zap.String("path", req.URL.Path),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode worker response: %w", err)
	}

	c.logger.Debug("Worker request done",
		zap.String("path", req.URL.Path),
		zap.Duration("took", time.Since(start)))
	return nil
}
