package session

import (
	"mime"
	"net/http"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

// Expect is the kind of payload a caller wants back.
type Expect int

const (
	ExpectJSON Expect = iota
	ExpectText
	ExpectBinary
)

func (e Expect) String() string {
	switch e {
	case ExpectJSON:
		return "json"
	case ExpectText:
		return "text"
	case ExpectBinary:
		return "binary"
	default:
		return ""
	}
}

// Request describes one logical call issued through the [Client].
//
// A Request is built per call and is only mutated by the [Coordinator],
// which marks it retried before replaying it.
type Request struct {
	ID      string
	Method  string
	Path    string
	Body    []byte
	Headers http.Header
	Expect  Expect

	// SkipAuthRefresh opts the call out of refresh coordination entirely.
	// The refresh, liveness and logout calls set it to prevent recursion.
	SkipAuthRefresh bool

	retried bool
	cycle   uint64
}

// NewRequest builds a JSON request with a fresh ID.
func NewRequest(method, path string, body []byte) *Request {
	return &Request{
		ID:      shared.GenerateID(),
		Method:  method,
		Path:    path,
		Body:    body,
		Headers: make(http.Header),
		Expect:  ExpectJSON,
	}
}

// Retried reports whether the coordinator has already replayed this request once.
func (r *Request) Retried() bool {
	return r.retried
}

// Response represents a completed 2xx exchange.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// ContentType returns the media type of the response without parameters.
func (r *Response) ContentType() string {
	return mediaType(r.Headers.Get("Content-Type"))
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mt
}
