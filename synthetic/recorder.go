package synthetic

import (
	"bytes"
	"net/http"
)

// ResponseRecorder is an http.ResponseWriter that captures status code,
// headers, and body into memory instead of a socket. It also satisfies
// http.Flusher so engines that stream do not fail the interface check;
// Flush is a no-op because there is nothing downstream to flush to.
type ResponseRecorder struct {
	status      int
	header      http.Header
	body        bytes.Buffer
	wroteHeader bool
}

// NewRecorder returns an empty recorder. The status defaults to 200 when the
// engine writes a body without an explicit WriteHeader, matching net/http
// server behavior.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{
		status: http.StatusOK,
		header: make(http.Header),
	}
}

// Header implements http.ResponseWriter.
func (r *ResponseRecorder) Header() http.Header {
	return r.header
}

// WriteHeader implements http.ResponseWriter. Like the real server, only the
// first call takes effect.
func (r *ResponseRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = code
}

// Write implements http.ResponseWriter.
func (r *ResponseRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(p)
}

// Flush implements http.Flusher.
func (r *ResponseRecorder) Flush() {}

// Status returns the captured status code.
func (r *ResponseRecorder) Status() int {
	return r.status
}

// Body returns the captured body bytes. The slice aliases the internal
// buffer; callers that outlive the recorder should copy it.
func (r *ResponseRecorder) Body() []byte {
	return r.body.Bytes()
}

// BodyString returns the captured body as a string.
func (r *ResponseRecorder) BodyString() string {
	return r.body.String()
}
