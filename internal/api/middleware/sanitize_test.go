package middleware

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Cookie", "session=abc")
	h.Set("User-Agent", "curl/8.0\r\ninjected")
	h.Set("X-Long", strings.Repeat("a", 500))

	out := SanitizeHeaders(h)
	assert.Equal(t, []string{"<redacted>"}, out["Authorization"])
	assert.Equal(t, []string{"<redacted>"}, out["Cookie"])
	assert.Equal(t, []string{"curl/8.0 injected"}, out["User-Agent"])
	assert.Len(t, out["X-Long"][0], 200)

	assert.Nil(t, SanitizeHeaders(nil))
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "/api/v1/rules/1", SanitizePath("/api/v1/rules/1?key=sid"))
	assert.Equal(t, "/a b", SanitizePath("/a\nb"))
	assert.Len(t, SanitizePath("/"+strings.Repeat("x", 300)), 200)
}
