package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jardens/pricebasket/internal/owner"
)

func TestResolveOwner(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = owner.ID(r.Context())
	})

	tests := []struct {
		name      string
		header    string
		def       string
		wantOwner string
		wantCode  int
	}{
		{"header wins", "alice", "local", "alice", http.StatusOK},
		{"default applies", "", "local", "local", http.StatusOK},
		{"whitespace header ignored", "  ", "local", "local", http.StatusOK},
		{"no owner rejected", "", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = ""
			r := httptest.NewRequest("GET", "/api/items", nil)
			if tt.header != "" {
				r.Header.Set(OwnerHeader, tt.header)
			}
			w := httptest.NewRecorder()

			ResolveOwner(tt.def)(next).ServeHTTP(w, r)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if got != tt.wantOwner {
				t.Errorf("owner = %q, want %q", got, tt.wantOwner)
			}
		})
	}
}
