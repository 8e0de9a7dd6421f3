// Package transport holds the small HTTP/JSON helper shared by the gateway,
// storage node, and routed client: marshal a request body, post or get it,
// hand back the status code so the caller decides what it means.
//
// Every other package in this module used to inline its own copy of this
// loop (build a *http.Request, json.Marshal the body, json.Decode the
// response). transport.Client exists so that copy only happens once; the
// callers that care about a 404 meaning "not found" rather than "broken"
// (internal/kvclient) still get the raw status code back, not just an error.
package transport
