// Utilities for importing a browser session from a "Copy as cURL" command.
package shared

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookieRegex = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"|--cookie\s+'([^']+)'|--cookie\s+"([^"]+)"`)
	curlURLRegex    = regexp.MustCompile(`curl\s+(?:-X\s+\S+\s+)?'?"?(https?://[^\s'"]+)`)
)

// CurlSession holds the target URL and session cookies copied out of a browser cURL command.
type CurlSession struct {
	URL     *url.URL
	Headers map[string]string
	Cookies []*http.Cookie
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts the session.
func ParseCurlFile(filepath string) (*CurlSession, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(string(content))
}

// ParseCurlCommand parses a cURL command string and extracts its URL, headers and cookies.
//
// Cookies passed with -b/--cookie take precedence over a Cookie header.
func ParseCurlCommand(curlCmd string) (*CurlSession, error) {
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	session := &CurlSession{Headers: make(map[string]string)}

	if m := curlURLRegex.FindStringSubmatch(curlCmd); len(m) > 1 {
		u, err := url.Parse(m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: bad url in curl command: %v", ErrInvalidInput, err)
		}
		session.URL = u
	}

	var cookieLine string
	for _, match := range curlHeaderRegex.FindAllStringSubmatch(curlCmd, -1) {
		headerLine := firstGroup(match)
		key, value, ok := strings.Cut(headerLine, ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if strings.EqualFold(key, "cookie") {
			cookieLine = value
			continue
		}
		session.Headers[key] = value
	}

	if m := curlCookieRegex.FindStringSubmatch(curlCmd); m != nil {
		cookieLine = firstGroup(m)
	}

	if cookieLine != "" {
		cookies, err := http.ParseCookie(cookieLine)
		if err != nil {
			return nil, fmt.Errorf("%w: bad cookie line: %v", ErrInvalidInput, err)
		}
		session.Cookies = cookies
	}

	if session.URL == nil && len(session.Cookies) == 0 && len(session.Headers) == 0 {
		return nil, fmt.Errorf("%w: no url, headers or cookies found in curl command", ErrInvalidInput)
	}

	return session, nil
}

// Cookie returns the named cookie, or nil.
func (c *CurlSession) Cookie(name string) *http.Cookie {
	for _, cookie := range c.Cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func firstGroup(match []string) string {
	for _, group := range match[1:] {
		if group != "" {
			return group
		}
	}
	return ""
}
