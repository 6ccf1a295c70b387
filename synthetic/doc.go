// Package synthetic fabricates transport-shaped request and response objects
// so a protocol engine can be invoked without a real socket.
//
// A stateless invocation and a broker-relayed message both arrive as
// serialized method/url/headers/body; [NewRequest] rebuilds a genuine
// *http.Request from those parts and [ResponseRecorder] captures whatever the
// engine writes. The fidelity contract: an engine must not be able to tell a
// synthetic pair from a socket-backed one through the http.ResponseWriter and
// *http.Request surfaces it uses.
//
// # What this package must NOT do
//
//   - Interpret message contents (bodies pass through untouched).
//   - Depend on any other goRelay package.
package synthetic
