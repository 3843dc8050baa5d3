package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"
)

// LimitUpload caps multipart request bodies at maxBytes and parses the form
// before any later middleware reads it. Bodies over the cap are handed to
// tooLarge instead of next.
func LimitUpload(maxBytes int64, tooLarge http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			if err := r.ParseMultipartForm(maxBytes); err != nil {
				var tooLargeErr *http.MaxBytesError
				if errors.As(err, &tooLargeErr) {
					tooLarge.ServeHTTP(w, r)
					return
				}
				log.Printf("Failed to parse upload: %v", err)
			}
			next.ServeHTTP(w, r)
		})
	}
}
