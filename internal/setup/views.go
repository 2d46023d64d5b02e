package setup

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"stepLabels": func() []string {
		return []string{"Requirements", "Download & Keys", "Configuration", "Results"}
	},
}

var pages = map[string]*template.Template{
	"wizard":      mustPage("wizard.html"),
	"configured":  mustPage("configured.html"),
	"keygen":      mustPage("keygen.html"),
	"diagnostics": mustPage("diagnostics.html"),
}

func mustPage(name string) *template.Template {
	return template.Must(template.New("layout.html").Funcs(templateFuncs).
		ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

// render executes a page into a buffer first so a template error still
// produces a clean 500.
func render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := pages[page].Execute(&buf, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("page", page).Msg("render page")
		http.Error(w, "internal error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
