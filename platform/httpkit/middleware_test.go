package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type staticJWT string

func (s staticJWT) GetJWTAccessSecret() string { return string(s) }

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newAuthRouter(secret string) (*gin.Engine, *Identity) {
	gin.SetMode(gin.TestMode)
	var seen Identity
	r := gin.New()
	r.GET("/me", AuthRequired(staticJWT(secret)), func(c *gin.Context) {
		seen = MustGetIdentity(c)
		if seen == nil {
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r, &seen
}

func TestAuthRequiredSetsIdentity(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	r, seen := newAuthRouter("s3cret")

	token := signToken(t, "s3cret", jwt.MapClaims{
		"sub":       userID.String(),
		"tenant_id": tenantID.String(),
		"roles":     []string{"admin"},
		"type":      "access",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	id := *seen
	require.NotNil(t, id)
	assert.Equal(t, userID, id.UserID())
	assert.Equal(t, tenantID, id.TenantID())
	assert.True(t, id.HasRole("admin"))
}

func TestAuthRequiredRejectsTokenWithoutTenant(t *testing.T) {
	r, _ := newAuthRouter("s3cret")
	token := signToken(t, "s3cret", jwt.MapClaims{
		"sub":  uuid.NewString(),
		"type": "access",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequiredRejectsRefreshTokens(t *testing.T) {
	r, _ := newAuthRouter("s3cret")
	token := signToken(t, "s3cret", jwt.MapClaims{
		"sub":       uuid.NewString(),
		"tenant_id": uuid.NewString(),
		"type":      "refresh",
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleGatesOnTokenRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/maintenance", AuthRequired(staticJWT("s3cret")), RequireRole(RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	call := func(roles []string) int {
		token := signToken(t, "s3cret", jwt.MapClaims{
			"sub":       uuid.NewString(),
			"tenant_id": uuid.NewString(),
			"roles":     roles,
			"type":      "access",
			"exp":       time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodPost, "/maintenance", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusAccepted, call([]string{"sales", RoleAdmin}))
	assert.Equal(t, http.StatusForbidden, call([]string{"sales"}))
	assert.Equal(t, http.StatusForbidden, call(nil))
}

func TestIPRateLimiterBlocksAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewIPRateLimiter(rate.Limit(0.001), 2, nil)
	r := gin.New()
	r.POST("/submit", limiter.RateLimit(), func(c *gin.Context) { c.Status(http.StatusAccepted) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests}, codes)
}
