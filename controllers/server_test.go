package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closetapi/metrics"
	"closetapi/models"
	"closetapi/stylist"
	"closetapi/test"
)

const testUserID uint = 7

type testEnv struct {
	e        *echo.Echo
	clothes  *test.ClothesStoreMock
	tokens   *test.PushTokenStoreMock
	aws      *test.AWSProviderMock
	tasks    *test.EnqueuerMock
	chat     *test.ChatProviderMock
	sessions *stylist.Store
	metrics  *metrics.Registry
}

type envOption func(*testEnv, *ServerDeps)

func withURLCache(cache test.URLCacheMock) envOption {
	return func(_ *testEnv, deps *ServerDeps) {
		deps.URLCache = cache
	}
}

func newTestEnv(t *testing.T, items []models.Clothing, opts ...envOption) *testEnv {
	t.Helper()
	env := &testEnv{
		clothes:  test.NewClothesStoreMock(items...),
		tokens:   &test.PushTokenStoreMock{},
		aws:      &test.AWSProviderMock{},
		tasks:    &test.EnqueuerMock{},
		chat:     &test.ChatProviderMock{},
		sessions: stylist.NewStore(time.Hour),
		metrics:  metrics.NewRegistry("closetapi-test"),
	}
	deps := ServerDeps{
		JWTSecret:  test.JWTSecret,
		Clothes:    env.clothes,
		PushTokens: env.tokens,
		AWSService: env.aws,
		URLCache:   test.URLCacheMock{},
		Tasks:      env.tasks,
		Sessions:   env.sessions,
		Metrics:    env.metrics,
	}
	for _, opt := range opts {
		opt(env, &deps)
	}
	deps.Stylist = stylist.NewOrchestrator(env.chat, stylist.WithTimeout(2*time.Second), stylist.WithMetrics(env.metrics))
	env.e = SetupServer(deps)
	return env
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["error"]
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var counters map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counters))
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	expired := test.GenerateUserTokenWithExpiry(UIntToStr(testUserID), time.Now().Add(-time.Hour))
	foreign, err := GenerateUserToken(UIntToStr(testUserID), "another-secret", time.Hour)
	require.NoError(t, err)

	cases := map[string]string{
		"missing":        "",
		"garbage":        "Bearer not-a-token",
		"expired":        "Bearer " + expired,
		"wrong secret":   "Bearer " + foreign,
		"empty subject":  "Bearer " + test.GenerateUserToken(""),
		"non numeric id": "Bearer " + test.GenerateUserToken("alice"),
	}
	for name, auth := range cases {
		t.Run(name, func(t *testing.T) {
			req := test.NewJSONRequest(http.MethodGet, "/closet/clothes/list", nil)
			if auth != "" {
				req.Header.Set("Authorization", auth)
			}
			rec := env.do(req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthorized", decodeError(t, rec))
		})
	}
}

func TestGenerateUserTokenIsAccepted(t *testing.T) {
	env := newTestEnv(t, nil)
	token, err := GenerateUserToken(UIntToStr(testUserID), test.JWTSecret, time.Hour)
	require.NoError(t, err)

	req := test.NewJSONAuthRequestCustomAuth(http.MethodGet, "/closet/clothes/list", fmt.Sprintf("Bearer %s", token), nil)
	rec := env.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerateUserTokenRequiresSecret(t *testing.T) {
	_, err := GenerateUserToken("1", "", time.Hour)
	assert.Error(t, err)
}

func TestRequestLoggerCountsByRoute(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(test.NewJSONAuthRequest(http.MethodGet, "/closet/clothes/list", UIntToStr(testUserID), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = env.do(test.NewJSONRequest(http.MethodGet, "/closet/clothes/list", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	route := "/closet/clothes/list"
	assert.EqualValues(t, 1, env.metrics.Value(metrics.HTTPRequests, map[string]string{"method": "GET", "route": route, "status": "2xx"}))
	assert.EqualValues(t, 1, env.metrics.Value(metrics.HTTPRequests, map[string]string{"method": "GET", "route": route, "status": "4xx"}))
	assert.EqualValues(t, 0, env.metrics.Value(metrics.HTTPErrors, map[string]string{"method": "GET", "route": route, "status": "4xx"}))
}

func TestRequestLoggerKeepsIncomingRequestID(t *testing.T) {
	env := newTestEnv(t, nil)
	req := test.NewJSONRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")

	rec := env.do(req)

	assert.Equal(t, "req-123", rec.Header().Get(echo.HeaderXRequestID))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "4xx", statusClass(409))
	assert.Equal(t, "5xx", statusClass(503))
	assert.Equal(t, "0", statusClass(0))
}
