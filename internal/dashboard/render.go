package dashboard

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/agent-console/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = []string{"index.html", "agent.html", "report.html", "preview.html", "error.html"}

var funcs = template.FuncMap{
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format("Jan 2, 2006 15:04")
	},
	"tabLabel": func(tab string) string { return cases.Title(language.English).String(tab) },
	"diffClass": func(op report.DiffOp) string {
		switch op {
		case report.DiffInsert:
			return "ins"
		case report.DiffDelete:
			return "del"
		default:
			return "eq"
		}
	},
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pageTemplates))}
	for _, name := range pageTemplates {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, eris.Wrapf(err, "dashboard: parse template %s", name)
		}
		r.pages[name] = t
	}
	return r, nil
}

// render executes into a buffer first so a template error never leaves a
// half-written page.
func (r *renderer) render(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.pages[name]
	if !ok {
		http.Error(w, "unknown template", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		zap.L().Error("dashboard: render", zap.String("template", name), zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
