package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit limits requests per client IP within the window.
func RateLimit(requests int, windowStr string) func(next http.Handler) http.Handler {
	window, err := time.ParseDuration(windowStr)
	if err != nil {
		window = time.Minute
	}
	return httprate.LimitByIP(requests, window)
}
