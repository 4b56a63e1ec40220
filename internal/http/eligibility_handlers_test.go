package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/open-builders/giveaway-rules/internal/common/errors"
	"github.com/open-builders/giveaway-rules/internal/common/middleware"
	"github.com/open-builders/giveaway-rules/internal/domain/rule"
	"github.com/open-builders/giveaway-rules/internal/service/entry"
)

type call struct {
	userID string
	target entry.Target
	rules  []rule.Rule
}

type fakeService struct {
	calls   []call
	verdict rule.Verdict
	err     error
}

func (f *fakeService) Check(_ context.Context, userID string, target entry.Target) (rule.Verdict, error) {
	f.calls = append(f.calls, call{userID: userID, target: target})
	return f.verdict, f.err
}

func (f *fakeService) CheckAdHoc(_ context.Context, userID string, rs []rule.Rule) (rule.Verdict, error) {
	f.calls = append(f.calls, call{userID: userID, rules: rs})
	return f.verdict, f.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, r http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestEligibilityRoutes(t *testing.T) {
	tests := []struct {
		path string
		want entry.Target
	}{
		{"/api/v1/giveaways/gw1/eligibility", entry.Target{Context: entry.ContextGiveaway, EntityID: "gw1"}},
		{"/api/v1/giveaways/gw1/eligibility/discord-roles", entry.Target{Context: entry.ContextDiscordRoles, EntityID: "gw1"}},
		{"/api/v1/presales/ps1/eligibility", entry.Target{Context: entry.ContextPresale, EntityID: "ps1"}},
		{"/api/v1/applications/ap1/eligibility", entry.Target{Context: entry.ContextApplication, EntityID: "ap1"}},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			svc := &fakeService{verdict: rule.Verdict{EvaluationID: "ev1", IsSuccess: true, Results: []rule.Result{}}}
			r := NewRouter(RouterConfig{}, svc)

			w := do(t, r, http.MethodPost, tc.path, "u1", "")

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			require.Len(t, svc.calls, 1)
			assert.Equal(t, "u1", svc.calls[0].userID)
			assert.Equal(t, tc.want, svc.calls[0].target)

			var v rule.Verdict
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
			assert.True(t, v.IsSuccess)
			assert.Equal(t, "ev1", v.EvaluationID)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestEligibilityRequiresUserID(t *testing.T) {
	svc := &fakeService{}
	r := NewRouter(RouterConfig{}, svc)

	w := do(t, r, http.MethodPost, "/api/v1/giveaways/gw1/eligibility", "", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.calls)
}

func TestEligibilityErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   apperrors.ErrorCode
	}{
		{apperrors.NewNotFoundError("giveaway", "gw1"), http.StatusNotFound, apperrors.ErrCodeNotFound},
		{apperrors.NewValidationError("rules[0]", "bad"), http.StatusBadRequest, apperrors.ErrCodeValidation},
		{apperrors.NewDatabaseError("list rules", errors.New("down")), http.StatusInternalServerError, apperrors.ErrCodeDatabaseError},
		{errors.New("plain"), http.StatusInternalServerError, apperrors.ErrCodeInternal},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			r := NewRouter(RouterConfig{}, &fakeService{err: tc.err})

			w := do(t, r, http.MethodPost, "/api/v1/giveaways/gw1/eligibility", "u1", "")

			require.Equal(t, tc.status, w.Code)
			var body struct {
				Success bool `json:"success"`
				Error   struct {
					Code apperrors.ErrorCode `json:"code"`
				} `json:"error"`
				RequestID string `json:"request_id"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestAdHocEligibility(t *testing.T) {
	svc := &fakeService{verdict: rule.Verdict{IsSuccess: false, Results: []rule.Result{}}}
	r := NewRouter(RouterConfig{}, svc)

	w := do(t, r, http.MethodPost, "/api/v1/eligibility", "u1",
		`{"rules":[{"id":"r1","type":"DISCORD_GUILD","discord_guild":{"guild_id":"g1","guild_name":"Builders"}}]}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, svc.calls, 1)
	require.Len(t, svc.calls[0].rules, 1)
	assert.Equal(t, "g1", svc.calls[0].rules[0].DiscordGuild.GuildID)

	w = do(t, r, http.MethodPost, "/api/v1/eligibility", "u1", `{"rules":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	r := NewRouter(RouterConfig{Health: map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
	}}, &fakeService{})
	w := do(t, r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"postgres":"ok"`)

	r = NewRouter(RouterConfig{Health: map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}}, &fakeService{})
	w = do(t, r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestCORSConfig(t *testing.T) {
	assert.True(t, corsConfig("*").AllowAllOrigins)
	assert.True(t, corsConfig("").AllowAllOrigins)
	c := corsConfig("https://a.example, https://b.example")
	assert.False(t, c.AllowAllOrigins)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowOrigins)
}
