package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gauravbalpande/serverless-inventory-management/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// =====================
// helper
// =====================

func mustMakeJWT(t *testing.T, secret string, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	g := e.Group("/shops/:shopId", AuthJWT(config.Config{JWTSecret: testSecret}), ShopScopeGuard())
	g.GET("/products", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"subject": c.Get(CtxSubjectKey),
			"role":    c.Get(CtxUserRoleKey),
		})
	})
	admin := e.Group("/ops", AuthJWT(config.Config{JWTSecret: testSecret}), AdminRoleGuard())
	admin.GET("", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	return e
}

func doGet(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthJWT_Unauthorized(t *testing.T) {
	e := newTestEcho()

	tests := []struct {
		name  string
		token string
	}{
		{"missing header", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", mustMakeJWT(t, "other", jwt.MapClaims{"sub": "u1", "shops": []string{"shop-1"}}, jwt.SigningMethodHS256)},
		{"wrong alg", mustMakeJWT(t, testSecret, jwt.MapClaims{"sub": "u1"}, jwt.SigningMethodHS512)},
		{"expired", mustMakeJWT(t, testSecret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()}, jwt.SigningMethodHS256)},
		{"no subject", mustMakeJWT(t, testSecret, jwt.MapClaims{"shops": []string{"shop-1"}}, jwt.SigningMethodHS256)},
		{"bad shops claim", mustMakeJWT(t, testSecret, jwt.MapClaims{"sub": "u1", "shops": "shop-1"}, jwt.SigningMethodHS256)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(e, "/shops/shop-1/products", tt.token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "unauthorized", body.Error)
		})
	}
}

func TestShopScopeGuard(t *testing.T) {
	e := newTestEcho()
	staff := mustMakeJWT(t, testSecret, jwt.MapClaims{"sub": "u1", "shops": []string{"shop-1", "shop-2"}}, jwt.SigningMethodHS256)
	admin := mustMakeJWT(t, testSecret, jwt.MapClaims{"sub": "root", "role": RoleAdmin}, jwt.SigningMethodHS256)

	rec := doGet(e, "/shops/shop-2/products", staff)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subject":"u1"`)

	rec = doGet(e, "/shops/shop-9/products", staff)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doGet(e, "/shops/shop-9/products", admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoleGuard(t *testing.T) {
	e := newTestEcho()
	staff := mustMakeJWT(t, testSecret, jwt.MapClaims{"sub": "u1", "shops": []string{"shop-1"}}, jwt.SigningMethodHS256)
	admin := mustMakeJWT(t, testSecret, jwt.MapClaims{"sub": "root", "role": RoleAdmin}, jwt.SigningMethodHS256)

	assert.Equal(t, http.StatusForbidden, doGet(e, "/ops", staff).Code)
	assert.Equal(t, http.StatusNoContent, doGet(e, "/ops", admin).Code)
}
