// Package api provides the HTTP surface of the valve bridge.
//
// It serves the login session endpoints used by the browser UI
// (POST /login, GET /healthcheck), the valve list, a JSON status snapshot,
// the Prometheus exposition and, optionally, the static UI assets.
//
// A rejected login answers 401 with {"token":null}. Earlier bridge
// versions answered 200 with the same body; browser clients only look at
// the token field, so both read as a failed login.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
