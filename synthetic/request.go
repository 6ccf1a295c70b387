package synthetic

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
)

// NewRequest fabricates an in-memory *http.Request from serialized parts,
// with no socket behind it. The body reads as a normal stream and headers
// are carried over with canonicalized keys, so a protocol engine parses the
// result exactly as it would a transport-delivered request.
//
// target may be a bare path with query ("/message?sessionId=abc") or an
// absolute URL. A nil or empty body yields a request with no body.
func NewRequest(ctx context.Context, method, target string, header http.Header, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	for key, values := range header {
		canonical := http.CanonicalHeaderKey(key)
		req.Header[canonical] = append([]string(nil), values...)
	}
	req.ContentLength = int64(len(body))

	return req, nil
}

// NewJSONRequest marshals v and fabricates a request carrying it as an
// application/json body.
func NewJSONRequest(ctx context.Context, method, target string, header http.Header, v any) (*http.Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	req, err := NewRequest(ctx, method, target, header, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}
