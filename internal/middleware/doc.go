// Package middleware provides HTTP middleware for the video compressor.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - gzip compression of API and page responses
//
// Every response writer wrapper here supports http.Hijacker (so the
// websocket event stream can upgrade through the chain) and Unwrap (so
// http.ResponseController reaches the real connection).
package middleware
