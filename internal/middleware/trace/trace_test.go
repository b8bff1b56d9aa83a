package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareAssignsID(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromRequest(r)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.HasPrefix(seen, "req_") || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("id %q not propagated (header %q)", seen, rec.Header().Get(RequestIDHeader))
	}
}

func TestMiddlewareInboundID(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		reused  bool
	}{
		{"well formed", "abc-123", true},
		{"injection", "bad\nid", false},
		{"too long", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = FromRequest(r)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, tt.inbound)
			h.ServeHTTP(httptest.NewRecorder(), req)
			if (seen == tt.inbound) != tt.reused {
				t.Fatalf("seen %q, reused=%v", seen, tt.reused)
			}
		})
	}
}
