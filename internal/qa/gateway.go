// Package qa answers reader questions about a post through the agent worker.
package qa

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/inkwell/blogmind/internal/errs"
	"github.com/inkwell/blogmind/internal/models"
	"github.com/inkwell/blogmind/internal/worker"
	"github.com/inkwell/blogmind/pkg/logging"
	"github.com/inkwell/blogmind/pkg/telemetry"
)

// DefaultTimeout bounds a worker query when none is configured
const DefaultTimeout = 30 * time.Second

// MessageNotReady is returned while a post is still being indexed
const MessageNotReady = "AI is still processing this blog. Please try again in a moment."

var askTotal = telemetry.NewCounter("blogmind_ask_total", "Questions by outcome")

// PostReader loads posts
type PostReader interface {
	GetByID(ctx context.Context, id string) (*models.Post, error)
}

// Querier answers a question about an indexed post
type Querier interface {
	Query(ctx context.Context, postID, question string) (string, error)
}

// Answer is the worker's answer to a question
type Answer struct {
	Answer string `json:"answer"`
}

// Gateway gates questions on post readiness and bounds worker calls
type Gateway struct {
	posts   PostReader
	querier Querier
	timeout time.Duration
	logger  *zap.Logger
}

// NewGateway creates a question gateway
func NewGateway(posts PostReader, querier Querier, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		posts:   posts,
		querier: querier,
		timeout: timeout,
		logger:  logging.WithComponent("qa-gateway"),
	}
}

type queryResult struct {
	answer string
	err    error
}

// Ask answers question about postID. The worker is only called for posts
// that are ready; a call that outlives the timeout is abandoned.
func (g *Gateway) Ask(ctx context.Context, postID, question string) (*Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "qa.ask")
	defer span.End()
	span.SetAttributes(attribute.String("post_id", postID))

	if _, err := uuid.Parse(postID); err != nil {
		askTotal.Inc(ctx, "invalid_reference")
		return nil, errs.New(errs.KindInvalidReference, "Invalid blog ID format")
	}
	if strings.TrimSpace(question) == "" {
		askTotal.Inc(ctx, "invalid")
		return nil, errs.New(errs.KindInvalid, "Question is required")
	}

	post, err := g.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		askTotal.Inc(ctx, "invalid_reference")
		return nil, errs.New(errs.KindInvalidReference, "Blog not found")
	}
	if !post.RagIndexed {
		askTotal.Inc(ctx, "not_ready")
		return nil, errs.New(errs.KindNotReady, MessageNotReady)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// Buffered so an abandoned call can still deliver and exit.
	results := make(chan queryResult, 1)
	go func() {
		answer, err := g.querier.Query(callCtx, postID, question)
		results <- queryResult{answer: answer, err: err}
	}()

	start := time.Now()
	var res queryResult
	select {
	case res = <-results:
	case <-callCtx.Done():
		res = queryResult{err: callCtx.Err()}
	}

	if res.err != nil && ctx.Err() != nil {
		// The caller went away; this says nothing about the worker.
		askTotal.Inc(ctx, "canceled")
		g.logger.Debug("Question abandoned by caller",
			zap.String("post_id", postID),
			zap.Duration("took", time.Since(start)),
			zap.Error(ctx.Err()))
		return nil, ctx.Err()
	}
	if res.err != nil {
		classified := worker.Classify(res.err)
		kind := errs.KindOf(classified)
		askTotal.Inc(ctx, string(kind))
		g.logger.Warn("Question failed",
			zap.String("post_id", postID),
			zap.String("kind", string(kind)),
			zap.Duration("took", time.Since(start)),
			zap.Error(res.err))
		return nil, classified
	}

	askTotal.Inc(ctx, "answered")
	return &Answer{Answer: res.answer}, nil
}
