package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/tazhibayda/edu-auth/internal/config"
	api "github.com/tazhibayda/edu-auth/internal/http"
	"github.com/tazhibayda/edu-auth/internal/log"
	"github.com/tazhibayda/edu-auth/internal/oauth"
	"github.com/tazhibayda/edu-auth/internal/queue"
	"github.com/tazhibayda/edu-auth/internal/repo"
)

const testSecret = "test_jwt_secret"

type testEnv struct {
	T       *testing.T
	Ctx     context.Context
	Mongo   *mongodb.MongoDBContainer
	Store   *repo.Store
	Handler *api.Handler
	Router  *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	mc, err := mongodb.RunContainer(ctx,
		testcontainers.WithImage("mongo:6"),
	)
	if err != nil {
		t.Fatalf("mongo container: %v", err)
	}

	uri, err := mc.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("mongo uri: %v", err)
	}

	if _, err := log.Init(false); err != nil {
		t.Fatalf("log init: %v", err)
	}

	store, err := repo.NewStore(ctx, uri, "auth_test")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.EnsureUserIndexes(ctx); err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{
		JWTSecret:      testSecret,
		AccessTTLMin:   15,
		Dev:            true,
		GoogleClientID: "test-client",
	}
	google := oauth.NewGoogle("test-client", "sec", "http://localhost/cb", "state_secret")

	// Redis/Rabbit are not needed: nil cache falls through to Mongo,
	// publisher is a noop
	h := api.NewHandler(store, nil, google, queue.NewNoop(), cfg)

	gin.SetMode(gin.TestMode)
	r := api.NewRouter(h)

	return &testEnv{T: t, Ctx: ctx, Mongo: mc, Store: store, Handler: h, Router: r}
}

func (e *testEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close(e.Ctx)
	}
	if e.Mongo != nil {
		_ = e.Mongo.Terminate(e.Ctx)
	}
}

func (e *testEnv) do(method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	e.T.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	e.Router.ServeHTTP(w, req)
	return w
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (e *testEnv) register(email, password, name string) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.do("POST", "/api/auth/register",
		`{"email":"`+email+`","password":"`+password+`","name":"`+name+`"}`, nil)
}

func (e *testEnv) login(email, password string) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.do("POST", "/api/auth/login",
		`{"email":"`+email+`","password":"`+password+`"}`, nil)
}

type authResp struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Refresh string `json:"refresh"`
	Error   string `json:"error"`
	User    struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	} `json:"user"`
}

func parseAuth(t *testing.T, w *httptest.ResponseRecorder) authResp {
	t.Helper()
	var r authResp
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("parse body %q: %v", w.Body.String(), err)
	}
	return r
}
