package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/blogmind/internal/agent"
	"github.com/inkwell/blogmind/internal/auth"
	"github.com/inkwell/blogmind/internal/blog"
	"github.com/inkwell/blogmind/internal/errs"
	"github.com/inkwell/blogmind/internal/listing"
	"github.com/inkwell/blogmind/internal/models"
	"github.com/inkwell/blogmind/internal/qa"
	"github.com/inkwell/blogmind/internal/reaction"
)

const testSecret = "agent-s3cret"

type fakeBlogs struct {
	lastPrincipal *auth.Principal
	lastInput     blog.PostInput
	err           error
}

func (f *fakeBlogs) ListPosts(context.Context) (listing.Snapshot, error) {
	return listing.Snapshot{{ID: "p1", Title: "Intro to AI", Slug: "intro-to-ai"}}, f.err
}

func (f *fakeBlogs) GetPost(_ context.Context, slug string) (*models.PostView, error) {
	if slug != "intro-to-ai" {
		return nil, errs.New(errs.KindNotFound, "Blog not found")
	}
	return &models.PostView{PostSummary: models.PostSummary{ID: "p1", Slug: slug}}, nil
}

func (f *fakeBlogs) CreatePost(_ context.Context, p *auth.Principal, in blog.PostInput) (*models.PostView, error) {
	f.lastPrincipal, f.lastInput = p, in
	return &models.PostView{PostSummary: models.PostSummary{ID: "p2", Title: in.Title, Author: p.Username}}, f.err
}

func (f *fakeBlogs) CreateAgentPost(_ context.Context, in blog.PostInput) (*blog.AgentPostResult, error) {
	f.lastInput = in
	return &blog.AgentPostResult{Created: true}, nil
}

func (f *fakeBlogs) DeletePost(_ context.Context, p *auth.Principal, _ string) (*blog.DeleteResult, error) {
	f.lastPrincipal = p
	return &blog.DeleteResult{Message: "Blog removed successfully"}, nil
}

func (f *fakeBlogs) React(_ context.Context, p *auth.Principal, _ string, kind models.ReactionKind) (*reaction.Result, error) {
	f.lastPrincipal = p
	return &reaction.Result{Kind: kind, Active: true, Likes: 1}, nil
}

func (f *fakeBlogs) AddComment(_ context.Context, p *auth.Principal, postID, text string) (*models.Comment, error) {
	return &models.Comment{PostID: postID, UserID: p.ID, Text: text}, nil
}

func (f *fakeBlogs) ListComments(context.Context, string) ([]models.Comment, error) {
	return []models.Comment{}, nil
}

func (f *fakeBlogs) Stats(context.Context) (*models.DashboardStats, error) {
	return &models.DashboardStats{TotalBlogs: 1}, nil
}

func (f *fakeBlogs) UserActivity(_ context.Context, p *auth.Principal) (*models.UserActivity, error) {
	f.lastPrincipal = p
	return &models.UserActivity{}, nil
}

type fakeAsker struct{ err error }

func (f fakeAsker) Ask(context.Context, string, string) (*qa.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &qa.Answer{Answer: "42"}, nil
}

type fakeReindexer struct {
	swept int
	id    string
}

func (f *fakeReindexer) Sweep(_ context.Context, limit int) (int, error) {
	f.swept = limit
	return 3, nil
}

func (f *fakeReindexer) Reindex(_ context.Context, postID string) error {
	f.id = postID
	return nil
}

type fakeLauncher struct{}

func (fakeLauncher) Trigger(_ context.Context, topic string) (string, error) {
	if topic == "" {
		topic = agent.DefaultTopic
	}
	return topic, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(context.Context) error { return f.err }

type testServer struct {
	engine    *gin.Engine
	blogs     *fakeBlogs
	reindexer *fakeReindexer
	tracker   *agent.Tracker
}

func newTestServer(t *testing.T, showDetail bool, asker Asker, checks map[string]HealthChecker) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		engine:    gin.New(),
		blogs:     &fakeBlogs{},
		reindexer: &fakeReindexer{},
		tracker:   agent.NewTracker(),
	}
	t.Cleanup(ts.tracker.Close)

	router := NewRouter(Services{
		Blogs:     ts.blogs,
		Asker:     asker,
		Reindexer: ts.reindexer,
		Tracker:   ts.tracker,
		Launcher:  fakeLauncher{},
	}, Config{
		ShowErrorDetail: showDetail,
		AgentSecret:     testSecret,
		ReindexBatch:    100,
		Checks:          checks,
	})
	router.SetupRoutes(ts.engine)
	return ts
}

type rpcResult struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"error"`
}

func (ts *testServer) call(t *testing.T, method string, params interface{}, headers map[string]string) rpcResult {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var res rpcResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

var userHeaders = map[string]string{HeaderUserID: "u1", HeaderUserName: "alice", HeaderUserRole: "user"}
var adminHeaders = map[string]string{HeaderUserID: "u0", HeaderUserName: "root", HeaderUserRole: "admin"}

func TestRouter_MethodsRegistered(t *testing.T) {
	router := NewRouter(Services{}, Config{})
	assert.ElementsMatch(t, []string{
		"blog_api.list_posts", "blog_api.get_post", "blog_api.list_comments",
		"blog_api.create_post", "blog_api.create_agent_post", "blog_api.delete_post",
		"blog_api.react", "blog_api.add_comment", "blog_api.ask", "blog_api.stats",
		"blog_api.user_activity", "blog_api.reindex",
		"agent_api.get_status", "agent_api.push_status", "agent_api.trigger",
	}, router.handler.Methods())
}

func TestRouter_PublicList(t *testing.T) {
	ts := newTestServer(t, true, fakeAsker{}, nil)

	res := ts.call(t, "blog_api.list_posts", nil, nil)
	require.Nil(t, res.Error)

	var snap listing.Snapshot
	require.NoError(t, json.Unmarshal(res.Result, &snap))
	require.Len(t, snap, 1)
	assert.Equal(t, "intro-to-ai", snap[0].Slug)
}

func TestRouter_ErrorMapping(t *testing.T) {
	ts := newTestServer(t, true, fakeAsker{}, nil)

	res := ts.call(t, "blog_api.get_post", map[string]string{"slug": "missing"}, nil)
	require.NotNil(t, res.Error)
	assert.Equal(t, -32001, res.Error.Code)
	assert.Equal(t, "Blog not found", res.Error.Message)

	var data ErrorData
	require.NoError(t, json.Unmarshal(res.Error.Data, &data))
	assert.Equal(t, errs.KindNotFound, data.Kind)
	assert.False(t, data.Retryable)
}

func TestRouter_AskNotReadyIsRetryable(t *testing.T) {
	asker := fakeAsker{err: errs.New(errs.KindNotReady, qa.MessageNotReady)}
	ts := newTestServer(t, true, asker, nil)

	res := ts.call(t, "blog_api.ask", map[string]string{"id": "p1", "question": "why?"}, userHeaders)
	require.NotNil(t, res.Error)
	assert.Equal(t, -32007, res.Error.Code)
	assert.Equal(t, qa.MessageNotReady, res.Error.Message)

	var data ErrorData
	require.NoError(t, json.Unmarshal(res.Error.Data, &data))
	assert.True(t, data.Retryable)
}

func TestRouter_DetailHiddenInProduction(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.7:8000: connect: connection refused")
	asker := fakeAsker{err: errs.Wrap(errs.KindWorkerUnreachable, "offline", cause)}

	dev := newTestServer(t, true, asker, nil)
	res := dev.call(t, "blog_api.ask", map[string]string{"id": "p1", "question": "q"}, userHeaders)
	require.NotNil(t, res.Error)
	assert.Equal(t, -32008, res.Error.Code)
	assert.Contains(t, string(res.Error.Data), "connection refused")

	prod := newTestServer(t, false, asker, nil)
	res = prod.call(t, "blog_api.ask", map[string]string{"id": "p1", "question": "q"}, userHeaders)
	require.NotNil(t, res.Error)
	assert.NotContains(t, string(res.Error.Data), "connection refused")
}

func TestRouter_UnclassifiedErrorsAreGeneric(t *testing.T) {
	ts := newTestServer(t, false, fakeAsker{}, nil)
	ts.blogs.err = errors.New("pq: relation \"posts\" does not exist")

	res := ts.call(t, "blog_api.list_posts", nil, nil)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrServerError, res.Error.Code)
	assert.Equal(t, "Server error", res.Error.Message)
	assert.NotContains(t, string(res.Error.Data), "relation")
}

func TestRouter_Authorization(t *testing.T) {
	ts := newTestServer(t, true, fakeAsker{}, nil)

	tests := []struct {
		name     string
		method   string
		headers  map[string]string
		wantCode int
	}{
		{"create needs user", "blog_api.create_post", nil, -32003},
		{"react needs user", "blog_api.react", nil, -32003},
		{"stats needs admin", "blog_api.stats", userHeaders, -32004},
		{"reindex needs admin", "blog_api.reindex", userHeaders, -32004},
		{"status needs admin", "agent_api.get_status", userHeaders, -32004},
		{"agent post needs secret", "blog_api.create_agent_post", adminHeaders, -32003},
		{"push needs secret", "agent_api.push_status", map[string]string{HeaderAgentKey: "wrong"}, -32003},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ts.call(t, tt.method, map[string]string{"id": "p1", "title": "t", "content": "c"}, tt.headers)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.wantCode, res.Error.Code)
		})
	}
}

func TestRouter_CreatePostUsesPrincipal(t *testing.T) {
	ts := newTestServer(t, true, fakeAsker{}, nil)

	res := ts.call(t, "blog_api.create_post", map[string]string{
		"title": "Intro to AI", "content": "c", "author": "someone-else", "date": "2020-01-01",
	}, userHeaders)
	require.Nil(t, res.Error)
	require.NotNil(t, ts.blogs.lastPrincipal)
	assert.Equal(t, "alice", ts.blogs.lastPrincipal.Username)
	assert.Empty(t, ts.blogs.lastInput.Author)
	assert.Empty(t, ts.blogs.lastInput.Date)
}

func TestRouter_AgentStatusRoundTrip(t *testing.T) {
	ts := newTestServer(t, true, fakeAsker{}, nil)
	agentHeaders := map[string]string{HeaderAgentKey: testSecret}

	res := ts.call(t, "agent_api.push_status", map[string]string{"status": "running", "node": "writer", "topic": "Go"}, agentHeaders)
	require.Nil(t, res.Error)

	res = ts.call(t, "agent_api.get_status", nil, adminHeaders)
	require.Nil(t, res.Error)
	var status agent.Status
	require.NoError(t, json.Unmarshal(res.Result, &status))
	assert.Equal(t, agent.StateRunning, status.State)
	assert.Equal(t, "Go", status.Topic)
	assert.NotNil(t, status.LastUpdate)

	res = ts.call(t, "agent_api.push_status", map[string]string{"status": "sleeping"}, agentHeaders)
	require.NotNil(t, res.Error)
	assert.Equal(t, -32005, res.Error.Code)
}

func TestRouter_Reindex(t *testing.T) {
	ts := newTestServer(t, true, fakeAsker{}, nil)

	res := ts.call(t, "blog_api.reindex", map[string]int{"limit": 5000}, adminHeaders)
	require.Nil(t, res.Error)
	assert.Equal(t, 100, ts.reindexer.swept)

	res = ts.call(t, "blog_api.reindex", map[string]string{"id": "p9"}, adminHeaders)
	require.Nil(t, res.Error)
	assert.Equal(t, "p9", ts.reindexer.id)
}

func TestRouter_ProtocolErrors(t *testing.T) {
	ts := newTestServer(t, true, fakeAsker{}, nil)

	res := ts.call(t, "blog_api.nope", nil, nil)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrMethodNotFound, res.Error.Code)

	res = ts.call(t, "blog_api.get_post", "not an object", nil)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrInvalidParams, res.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "-32700")
}

func TestRouter_Health(t *testing.T) {
	ok := newTestServer(t, true, fakeAsker{}, map[string]HealthChecker{"database": fakeHealth{}})
	w := httptest.NewRecorder()
	ok.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	down := newTestServer(t, true, fakeAsker{}, map[string]HealthChecker{"database": fakeHealth{err: errors.New("down")}})
	w = httptest.NewRecorder()
	down.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/.well-known/healthcheck.json", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "DEGRADED")
}

func TestDecodeParams(t *testing.T) {
	var dst struct {
		ID string `json:"id"`
	}

	require.NoError(t, DecodeParams(json.RawMessage(`{"id":"a"}`), &dst))
	assert.Equal(t, "a", dst.ID)

	require.NoError(t, DecodeParams(json.RawMessage(`[{"id":"b"}]`), &dst))
	assert.Equal(t, "b", dst.ID)

	require.NoError(t, DecodeParams(nil, &dst))
	require.NoError(t, DecodeParams(json.RawMessage(`null`), &dst))

	var paramsErr *ParamsError
	assert.ErrorAs(t, DecodeParams(json.RawMessage(`[1,2]`), &dst), &paramsErr)
	assert.ErrorAs(t, DecodeParams(json.RawMessage(`"x"`), &dst), &paramsErr)
}

func TestCodeFor(t *testing.T) {
	assert.Equal(t, -32001, CodeFor(errs.KindNotFound))
	assert.Equal(t, -32011, CodeFor(errs.KindCacheDegraded))
	assert.Equal(t, ErrServerError, CodeFor(errs.KindInternal))
}
