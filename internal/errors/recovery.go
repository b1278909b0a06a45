package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
)

// Logger is the part of logging.Logger the middleware needs.
type Logger interface {
	Error(msg string, fields ...map[string]interface{})
}

// Response is the JSON body written for failed requests.
type Response struct {
	Error string `json:"error"`
	Kind  Kind   `json:"kind"`
}

// WriteJSON writes err as a JSON error response with the status derived
// from its kind. Internal errors are logged with their stack and reported
// to the client without detail.
func WriteJSON(w http.ResponseWriter, logger Logger, err error) {
	status := HTTPStatus(err)
	resp := Response{Error: err.Error(), Kind: Classify(err)}

	if status >= http.StatusInternalServerError {
		fields := map[string]interface{}{"error": err.Error()}
		var e *Error
		if As(err, &e) && len(e.StackTrace()) > 0 {
			fields["stack"] = e.StackTrace()
		}
		logger.Error("Request error", fields)
		resp.Error = http.StatusText(status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// RecoveryMiddleware returns a middleware that recovers from panics.
func RecoveryMiddleware(logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Recovered from panic", map[string]interface{}{
					"error":  fmt.Sprint(rec),
					"stack":  string(debug.Stack()),
					"method": r.Method,
					"path":   r.URL.Path,
					"query":  r.URL.RawQuery,
				})

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(Response{
					Error: http.StatusText(http.StatusInternalServerError),
					Kind:  KindInternal,
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
