package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueParse(t *testing.T) {
	tok, err := Issue(7, "admin", "office-attendance", "secret", time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), tok.ExpiresAt, 5*time.Second)

	claims, err := Parse(tok.AccessToken, "secret", "office-attendance")
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "7", claims.Subject)

	_, err = Parse(tok.AccessToken, "other", "office-attendance")
	assert.Error(t, err)
	_, err = Parse(tok.AccessToken, "secret", "someone-else")
	assert.Error(t, err)
}

func TestParseExpired(t *testing.T) {
	tok, err := Issue(1, "user", "", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = Parse(tok.AccessToken, "secret", "")
	assert.Error(t, err)
}

func TestIssueRequiresKey(t *testing.T) {
	_, err := Issue(1, "user", "", "", time.Minute)
	assert.Error(t, err)
}

func TestIdentifyNeverBlocks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identify("secret", "iss"))
	r.GET("/who", func(c *gin.Context) {
		claims, ok := Actor(c)
		c.JSON(http.StatusOK, gin.H{"known": ok, "uid": claims.UserID})
	})

	tok, err := Issue(3, "user", "iss", "secret", time.Minute)
	require.NoError(t, err)

	cases := map[string]string{
		"":                            `{"known":false,"uid":0}`,
		"Bearer garbage":              `{"known":false,"uid":0}`,
		"Basic dXNlcjpwYXNz":          `{"known":false,"uid":0}`,
		"Bearer " + tok.AccessToken:   `{"known":true,"uid":3}`,
		"bearer   " + tok.AccessToken: `{"known":true,"uid":3}`,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, want, w.Body.String(), header)
	}
}
