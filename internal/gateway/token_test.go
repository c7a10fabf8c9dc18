package gateway

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name     string
		proto    string
		authz    string
		query    string
		expected string
	}{
		{
			name:     "subprotocol pair",
			proto:    "bearer, tok-sub",
			expected: "tok-sub",
		},
		{
			name:     "subprotocol without spaces",
			proto:    "bearer,tok-sub",
			expected: "tok-sub",
		},
		{
			name:     "subprotocol wins over header and query",
			proto:    "bearer, tok-sub",
			authz:    "Bearer tok-header",
			query:    "tok-query",
			expected: "tok-sub",
		},
		{
			name:     "authorization header",
			authz:    "Bearer tok-header",
			expected: "tok-header",
		},
		{
			name:     "header wins over query",
			authz:    "Bearer tok-header",
			query:    "tok-query",
			expected: "tok-header",
		},
		{
			name:     "query parameter",
			query:    "tok-query",
			expected: "tok-query",
		},
		{
			name:     "non-bearer subprotocol falls through to query",
			proto:    "chat.v1",
			query:    "tok-query",
			expected: "tok-query",
		},
		{
			name:     "non-bearer authorization scheme ignored",
			authz:    "Basic dXNlcjpwYXNz",
			expected: "",
		},
		{
			name:     "nothing supplied",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/ws"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			r := httptest.NewRequest("GET", url, nil)
			if tt.proto != "" {
				r.Header.Set("Sec-Websocket-Protocol", tt.proto)
			}
			if tt.authz != "" {
				r.Header.Set("Authorization", tt.authz)
			}

			assert.Equal(t, tt.expected, TokenFromRequest(r))
		})
	}
}
