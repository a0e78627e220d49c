package api

import (
	"net"
	"net/http"
)

// rateLimitMiddleware rejects clients over their window budget with 429.
// Limiter errors let the request through.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || s.rateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		client := clientIP(r)
		ok, err := s.limiter.Allow(r.Context(), client, s.rateLimit, s.rateWindow)
		if err != nil {
			s.logger.Warn("rate limiter unavailable", "client", client, "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
