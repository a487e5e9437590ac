package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/newsexpress/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	resp := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(resp)
	c.Request = req
	return c, resp
}

func TestReadToken(t *testing.T) {
	m := NewManager(config.Config{})

	tests := []struct {
		name   string
		cookie string
		header string
		want   string
		ok     bool
	}{
		{name: "cookie", cookie: "cookie-token", want: "cookie-token", ok: true},
		{name: "cookie wins over header", cookie: "cookie-token", header: "Bearer header-token", want: "cookie-token", ok: true},
		{name: "bearer header", header: "Bearer header-token", want: "header-token", ok: true},
		{name: "lowercase scheme", header: "bearer header-token", want: "header-token", ok: true},
		{name: "blank cookie falls back", cookie: "  ", header: "Bearer header-token", want: "header-token", ok: true},
		{name: "basic auth ignored", header: "Basic dXNlcjpwYXNz"},
		{name: "empty bearer", header: "Bearer    "},
		{name: "nothing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			c, _ := newContext(req)

			got, ok := m.ReadToken(c)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetAndClearCookie(t *testing.T) {
	m := NewManager(config.Config{AuthCookieSecure: true})

	c, resp := newContext(httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	m.Set(c, "fresh-token", time.Now().Add(time.Hour))
	assert.Equal(t, "no-store", resp.Header().Get("Cache-Control"))
	cookies := resp.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "fresh-token", cookies[0].Value)
	assert.True(t, cookies[0].Secure)
	assert.True(t, cookies[0].HttpOnly)
	assert.Greater(t, cookies[0].MaxAge, 3500)

	c, resp = newContext(httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	m.Clear(c)
	cookies = resp.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
