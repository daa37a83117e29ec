package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name       string
		userAgent  string
		deviceType string
		platform   string
	}{
		{
			name:       "Empty",
			userAgent:  "",
			deviceType: "unknown",
			platform:   "unknown",
		},
		{
			name:       "iPad",
			userAgent:  "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
			deviceType: "tablet",
		},
		{
			name:       "Android Phone",
			userAgent:  "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Mobile Safari/537.36",
			deviceType: "mobile",
			platform:   "android",
		},
		{
			name:       "Android Tablet",
			userAgent:  "Mozilla/5.0 (Linux; Android 12; SM-X200) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36",
			deviceType: "tablet",
			platform:   "android",
		},
		{
			name:       "Windows Desktop",
			userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36",
			deviceType: "desktop",
			platform:   "windows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseUserAgent(tt.userAgent)
			assert.Equal(t, tt.deviceType, info.DeviceType)
			if tt.platform != "" {
				assert.Equal(t, tt.platform, info.Platform)
			}
		})
	}
}

func TestGetRealIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newContext := func(headers map[string]string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/", nil)
		c.Request.RemoteAddr = "10.100.0.5:4000"
		for k, v := range headers {
			c.Request.Header.Set(k, v)
		}
		return c
	}

	t.Run("X-Real-IP", func(t *testing.T) {
		c := newContext(map[string]string{"X-Real-IP": "203.0.113.7"})
		assert.Equal(t, "203.0.113.7", GetRealIP(c))
	})

	t.Run("First Public Forwarded", func(t *testing.T) {
		c := newContext(map[string]string{"X-Forwarded-For": "10.0.0.1, 198.51.100.20, 203.0.113.9"})
		assert.Equal(t, "198.51.100.20", GetRealIP(c))
	})

	t.Run("All Private Forwarded", func(t *testing.T) {
		c := newContext(map[string]string{"X-Forwarded-For": "192.168.1.4, 10.0.0.1"})
		assert.Equal(t, "192.168.1.4", GetRealIP(c))
	})

	t.Run("Fallback", func(t *testing.T) {
		c := newContext(nil)
		assert.Equal(t, "10.100.0.5", GetRealIP(c))
	})
}

func TestGenerateSecrets(t *testing.T) {
	secrets, err := GenerateSecrets()
	require.NoError(t, err)
	assert.Len(t, secrets.JWTSecret, 64)
	assert.Len(t, secrets.NotifyWebhookToken, 48)
}
