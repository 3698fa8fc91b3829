package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closetapi/models"
	"closetapi/test"
)

func TestRegisterPushToken(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(test.NewJSONAuthRequest(http.MethodPost, "/closet/push-tokens", UIntToStr(testUserID),
		models.UserPushIn{Token: "device-token-1", Platform: "ios"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	active, err := env.tokens.ActiveTokens(t.Context(), testUserID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "device-token-1", active[0].Token)
	assert.Equal(t, models.PlatformIOS, active[0].Platform)
}

func TestRegisterPushTokenMovesBetweenAccounts(t *testing.T) {
	env := newTestEnv(t, nil)
	body := models.UserPushIn{Token: "shared-device", Platform: "android"}

	require.Equal(t, http.StatusOK, env.do(test.NewJSONAuthRequest(http.MethodPost, "/closet/push-tokens", "1", body)).Code)
	require.Equal(t, http.StatusOK, env.do(test.NewJSONAuthRequest(http.MethodPost, "/closet/push-tokens", "2", body)).Code)

	first, err := env.tokens.ActiveTokens(t.Context(), 1)
	require.NoError(t, err)
	second, err := env.tokens.ActiveTokens(t.Context(), 2)
	require.NoError(t, err)
	assert.Empty(t, first)
	assert.Len(t, second, 1)
}

func TestRegisterPushTokenValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	cases := map[string]models.UserPushIn{
		"unknown platform": {Token: "device-token-1", Platform: "symbian"},
		"missing platform": {Token: "device-token-1"},
		"missing token":    {Platform: "web"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := env.do(test.NewJSONAuthRequest(http.MethodPost, "/closet/push-tokens", UIntToStr(testUserID), body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, env.tokens.Tokens)
}

func TestRegisterPushTokenUnauthorized(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(test.NewJSONRequest(http.MethodPost, "/closet/push-tokens", models.UserPushIn{Token: "t", Platform: "ios"}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
