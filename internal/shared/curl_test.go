package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseCurlCommand(t *testing.T) {
	tt := []struct {
		name        string
		curlCmd     string
		wantURL     string
		wantHeaders map[string]string
		wantCookies map[string]string
		wantErr     bool
	}{
		{
			name:        "cookie via -b",
			curlCmd:     `curl 'https://evcs.example/api/stations' -b 'access_token=abc; refresh_token=def'`,
			wantURL:     "https://evcs.example/api/stations",
			wantHeaders: map[string]string{},
			wantCookies: map[string]string{"access_token": "abc", "refresh_token": "def"},
		},
		{
			name:        "cookie via header",
			curlCmd:     `curl "https://evcs.example/auth/me" -H "Cookie: access_token=abc"`,
			wantURL:     "https://evcs.example/auth/me",
			wantHeaders: map[string]string{},
			wantCookies: map[string]string{"access_token": "abc"},
		},
		{
			name:        "-b takes precedence over cookie header",
			curlCmd:     `curl 'https://evcs.example/' -H 'Cookie: old=1' -b 'new=2'`,
			wantURL:     "https://evcs.example/",
			wantHeaders: map[string]string{},
			wantCookies: map[string]string{"new": "2"},
		},
		{
			name: "multiline with other headers",
			curlCmd: `curl 'https://evcs.example/api/reservations' \
  -H 'accept: application/json' \
  -H 'x-requested-with: XMLHttpRequest' \
  --cookie 'access_token=abc'`,
			wantURL: "https://evcs.example/api/reservations",
			wantHeaders: map[string]string{
				"accept":           "application/json",
				"x-requested-with": "XMLHttpRequest",
			},
			wantCookies: map[string]string{"access_token": "abc"},
		},
		{
			name:    "nothing to import",
			curlCmd: `curl`,
			wantErr: true,
		},
		{
			name:    "empty command",
			curlCmd: "",
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParseCurlCommand(tc.curlCmd)

			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseCurlCommand() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}

			if result.URL == nil || result.URL.String() != tc.wantURL {
				t.Errorf("ParseCurlCommand() url = %v, want %v", result.URL, tc.wantURL)
			}

			if len(result.Headers) != len(tc.wantHeaders) {
				t.Errorf("ParseCurlCommand() headers = %v, want %v", result.Headers, tc.wantHeaders)
			}
			for key, want := range tc.wantHeaders {
				if got := result.Headers[key]; got != want {
					t.Errorf("header[%s] = %v, want %v", key, got, want)
				}
			}

			if len(result.Cookies) != len(tc.wantCookies) {
				t.Errorf("ParseCurlCommand() cookies = %v, want %v", result.Cookies, tc.wantCookies)
			}
			for name, want := range tc.wantCookies {
				cookie := result.Cookie(name)
				if cookie == nil {
					t.Errorf("missing cookie %s", name)
					continue
				}
				if cookie.Value != want {
					t.Errorf("cookie[%s] = %v, want %v", name, cookie.Value, want)
				}
			}
		})
	}
}

func TestParseCurlFile(t *testing.T) {
	t.Run("successful file parse", func(t *testing.T) {
		curlFile := filepath.Join(t.TempDir(), "curl.sh")
		curlCmd := `curl 'https://evcs.example/auth/me' -b 'access_token=abc'`
		if err := os.WriteFile(curlFile, []byte(curlCmd), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		result, err := ParseCurlFile(curlFile)
		if err != nil {
			t.Fatalf("ParseCurlFile() unexpected error = %v", err)
		}
		if result.Cookie("access_token") == nil {
			t.Error("expected access_token cookie")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := ParseCurlFile(filepath.Join(t.TempDir(), "nope.sh")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
