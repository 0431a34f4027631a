// Package httpclient issues JSON requests against a base URL over long-lived
// pooled sessions.
//
// A Client binds a base URL and default configuration. Each verb call
// normalizes the request params and body, acquires the pooled session for
// the client's pool key from a SessionRegistry, sends the request and
// resolves the response:
//
//	client, err := httpclient.New(httpclient.Config{BaseURL: "https://api.example.com"})
//
//	// Untyped: maps, slices and scalars come back as decoded JSON.
//	v, err := client.Get(ctx, httpclient.Request{
//	    Path:   "/users",
//	    Params: httpclient.Map(map[string]any{"page": 2}),
//	})
//
//	// Typed: the body is a validated struct, the response decodes into User.
//	user, err := httpclient.Post[User](ctx, client, httpclient.Request{
//	    Path: "/users",
//	    Body: httpclient.Model(User{Name: "James", Age: 25}),
//	})
//
// Non-2xx responses become *RequestError values. When Config.ErrorHandler is
// set, the handler receives the error instead and the verb returns nil.
//
// Sessions live in a process-wide registry (DefaultRegistry) until they are
// released with Client.Close or CloseAll. Clients whose base URL and
// transport settings match share one session.
package httpclient
