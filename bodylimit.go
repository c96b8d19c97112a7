package traffic

import "net/http"

// BodyLimit returns middleware that caps the request body at maxBytes.
// Oversized bodies surface as read errors inside the pipeline's body stage
// once the limit is crossed; bodies rejected before routing get a plain
// 413 from the http package.
func BodyLimit(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
