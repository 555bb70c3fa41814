package session

// Verdict is the result of classifying a 2xx response.
type Verdict int

const (
	Pass Verdict = iota
	AuthRedirectDetected
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "pass"
	case AuthRedirectDetected:
		return "auth_redirect_detected"
	default:
		return ""
	}
}

// Classify detects an auth gateway answering a JSON call with an HTML login page.
//
// Only requests expecting JSON are inspected. Text and binary callers asked
// for raw bytes and get them unchanged.
func Classify(req *Request, resp *Response) Verdict {
	if req == nil || resp == nil || req.Expect != ExpectJSON {
		return Pass
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Pass
	}

	switch resp.ContentType() {
	case "text/html", "application/xhtml+xml":
		return AuthRedirectDetected
	default:
		return Pass
	}
}
