package commands

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode"
)

func TestNewOAuthState(t *testing.T) {
	a, err := newOAuthState()
	if err != nil {
		t.Fatalf("newOAuthState error: %v", err)
	}
	b, _ := newOAuthState()

	if len(a) != 32 {
		t.Errorf("expected 32 characters, got %d", len(a))
	}
	if a == b {
		t.Errorf("expected distinct states, got %q twice", a)
	}
	for _, r := range a {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			t.Errorf("unexpected character %q in %q", r, a)
		}
	}
}

func TestCallbackRouter(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCode   string
		wantErr    string
	}{
		{"success", "/callback?state=s1&code=abc", http.StatusOK, "abc", ""},
		{"state mismatch", "/callback?state=other&code=abc", http.StatusBadRequest, "", "oauth state mismatch"},
		{"missing code", "/callback?state=s1", http.StatusBadRequest, "", "no code in callback"},
		{"unknown path", "/other", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codeCh := make(chan string, 1)
			errCh := make(chan error, 1)

			rec := httptest.NewRecorder()
			callbackRouter("s1", codeCh, errCh).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			select {
			case code := <-codeCh:
				if code != tt.wantCode {
					t.Errorf("expected code %q, got %q", tt.wantCode, code)
				}
			default:
				if tt.wantCode != "" {
					t.Errorf("expected code %q, got none", tt.wantCode)
				}
			}

			select {
			case err := <-errCh:
				if err.Error() != tt.wantErr {
					t.Errorf("expected error %q, got %q", tt.wantErr, err)
				}
			default:
				if tt.wantErr != "" {
					t.Errorf("expected error %q, got none", tt.wantErr)
				}
			}
		})
	}
}

func TestCallbackRouter_SecondCallbackDoesNotBlock(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	router := callbackRouter("s1", codeCh, errCh)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=abc", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	if len(codeCh) != 1 {
		t.Errorf("expected one pending code, got %d", len(codeCh))
	}
}
