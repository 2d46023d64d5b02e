package middleware

import (
	"html/template"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Installer Error</title></head>
<body>
<h1>Installer Error</h1>
<p>The installer hit an unexpected error and could not finish this step.</p>
{{if .RequestID}}<p>Request ID: <code>{{.RequestID}}</code></p>{{end}}
<p>Check the installer log for details, then reload the page to try again.
Every step can also be completed manually from a terminal.</p>
</body>
</html>
`))

// Recoverer turns a panic into a logged error and a generic HTML page with
// status 500, so the operator never sees an empty response. When the handler
// already started its response the panic is only logged.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			reqID := middleware.GetReqID(r.Context())
			zerolog.Ctx(r.Context()).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Bool("response_started", ww.wroteHeader).
				Msg("handler panic")
			if ww.wroteHeader {
				return
			}

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			errorPage.Execute(w, struct{ RequestID string }{reqID})
		}()
		next.ServeHTTP(ww, r)
	})
}
