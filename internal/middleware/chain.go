package middleware

import "net/http"

// Chain wraps h so the first middleware listed runs first.
//
//	handler := Chain(mux, Config(cfg), NonceMiddleware, SecurityHeaders)
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
