package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	authmw "github.com/bristolhackspace/induction/internal/auth/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index", "quiz", "result", "error"}

// views holds one template set per page, each sharing the layout.
type views struct {
	pages map[string]*template.Template
}

func loadViews() (*views, error) {
	v := &views{pages: map[string]*template.Template{}}
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// render executes into a buffer first so a template failure can still
// produce a clean 500.
func (v *views) render(w http.ResponseWriter, status int, name string, data any) error {
	t, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// page carries what the layout needs.
type page struct {
	User *authmw.Identity
}

type indexPage struct {
	page
	Names []string
}

type quizAnswer struct {
	Index int
	Text  string
}

type quizQuestion struct {
	Field   string
	Text    string
	Answers []quizAnswer
}

type quizPage struct {
	page
	Title         string
	Action        string
	AlreadyMember bool
	Questions     []quizQuestion
}

type wrongItem struct {
	Index  int
	Number int
	Text   string
	Hint   string
}

type answeredItem struct {
	Question string
	Answer   string
	Correct  bool
}

type resultPage struct {
	page
	Name     string
	Title    string
	Group    string
	Passed   bool
	Granted  bool
	Total    int
	Wrong    []wrongItem
	Answered []answeredItem
}

type errorPage struct {
	page
	Status  string
	Message string
}
