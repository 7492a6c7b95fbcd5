package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"github.com/alpacapps/spaces/internal/ctxkeys"
	"github.com/alpacapps/spaces/internal/markdown"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/timefmt"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static serves the embedded stylesheet and scripts.
func Static() http.Handler {
	sub, _ := fs.Sub(staticFS, "static")
	return http.FileServer(http.FS(sub))
}

// Frame is the root value every template receives. Page-specific values
// live in Data.
type Frame struct {
	Title   string
	Path    string
	AppName string
	User    *model.User
	CSRF    string
	Nonce   string
	Data    any
}

// Views holds one parsed template set per page. Every set shares the
// layout and partials and defines its own "content" block.
type Views struct {
	pages map[string]*template.Template
}

const sharedGlob = "templates/_*.html"

func NewViews(f *timefmt.Formatter, md *markdown.Renderer) (*Views, error) {
	base, err := template.New("").Funcs(funcs(f, md)).ParseFS(templateFS, sharedGlob)
	if err != nil {
		return nil, fmt.Errorf("parse shared templates: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	v := &Views{pages: make(map[string]*template.Template)}
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		if strings.HasPrefix(name, "_") {
			continue
		}
		set, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := set.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		v.pages[name] = set
	}
	return v, nil
}

func (v *Views) frame(r *http.Request, title string, data any) Frame {
	ctx := r.Context()
	f := Frame{
		Title: title,
		Path:  ctxkeys.NavSection(ctx),
		User:  ctxkeys.User(ctx),
		CSRF:  ctxkeys.CSRFToken(ctx),
		Nonce: templ.GetNonce(ctx),
		Data:  data,
	}
	if f.Path == "" {
		f.Path = r.URL.Path
	}
	if cfg := ctxkeys.Config(ctx); cfg != nil {
		f.AppName = cfg.AppName
	}
	return f
}

// Block returns a component rendering one named block of page.
func (v *Views) Block(r *http.Request, page, block, title string, data any) templ.Component {
	set, ok := v.pages[page]
	if !ok || set.Lookup(block) == nil {
		return templ.ComponentFunc(func(_ context.Context, _ io.Writer) error {
			return fmt.Errorf("unknown template %s/%s", page, block)
		})
	}
	return templ.FromGoHTML(set.Lookup(block), v.frame(r, title, data))
}

// Page renders the full layout, or just the "content" block for HTMX
// requests that swap #page.
func (v *Views) Page(w http.ResponseWriter, r *http.Request, page, title string, data any) {
	block := "layout"
	if IsHTMX(r) {
		block = "content"
	}
	Render(w, r, v.Block(r, page, block, title, data))
}

// Partial renders a named block of page without the layout.
func (v *Views) Partial(w http.ResponseWriter, r *http.Request, page, block string, data any) {
	Render(w, r, v.Block(r, page, block, "", data))
}

// Error renders the error page with status.
func (v *Views) Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	if IsHTMX(r) {
		ToastError(w, r, message)
		return
	}
	w.WriteHeader(status)
	Render(w, r, v.Block(r, "error", "layout", http.StatusText(status), struct {
		Status  int
		Message string
	}{status, message}))
}

func funcs(f *timefmt.Formatter, md *markdown.Renderer) template.FuncMap {
	return template.FuncMap{
		"datetime": func(t any) string { return f.DateTime(timeOf(t)) },
		"date":     func(t any) string { return f.Date(timeOf(t)) },
		"relative": func(t any) string { return f.Relative(timeOf(t), time.Now()) },
		"duration": func(s any) string { return timefmt.Duration(int(int64Of(s))) },
		"cost":     func(cents any) string { return f.Cost(int64Of(cents)) },
		"count":    f.Count,
		"size":     func(n int64) string { return humanize.Bytes(uint64(max(n, 0))) },
		"label":    f.Label,
		"markdown": md.MustRender,
		"classes":  twmerge.Merge,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"seconds":  func(d time.Duration) int { return int(d.Seconds()) },
		"contains": func(list []string, v string) bool { return slices.Contains(list, v) },
		"hasRole": func(u *model.User, roles ...string) bool {
			return u != nil && u.HasRole(roles...)
		},
		"statusClass": statusClass,
		"riskClass":   riskClass,
		"dict":        dict,
	}
}

func timeOf(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	}
	return time.Time{}
}

func int64Of(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	}
	return 0
}

const badgeBase = "inline-flex items-center rounded px-2 py-0.5 text-xs font-medium bg-slate-100 text-slate-700"

func statusClass(status string) string {
	switch status {
	case model.RequestProcessing, model.RequestBuilding:
		return twmerge.Merge(badgeBase, "bg-blue-100 text-blue-800 animate-pulse")
	case model.RequestReview:
		return twmerge.Merge(badgeBase, "bg-amber-100 text-amber-800")
	case model.RequestCompleted, model.InvitationAccepted:
		return twmerge.Merge(badgeBase, "bg-green-100 text-green-800")
	case model.RequestFailed, model.InvitationRevoked, model.InvitationExpired:
		return twmerge.Merge(badgeBase, "bg-red-100 text-red-800")
	}
	return badgeBase
}

func riskClass(level string) string {
	switch level {
	case model.RiskHigh:
		return twmerge.Merge(badgeBase, "bg-red-600 text-white")
	case model.RiskMedium:
		return twmerge.Merge(badgeBase, "bg-amber-400 text-black")
	case model.RiskLow:
		return twmerge.Merge(badgeBase, "bg-green-100 text-green-800")
	}
	return badgeBase
}

// dict builds a map from key/value pairs so templates can pass several
// values to a sub-template.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}
