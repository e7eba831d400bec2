package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	authmw "github.com/bristolhackspace/induction/internal/auth/middleware"
	"github.com/bristolhackspace/induction/internal/induction"
	"github.com/bristolhackspace/induction/internal/questionnaire"
)

// maxFormBytes bounds a submitted answer form.
const maxFormBytes = 64 << 10

type inductionHandlers struct {
	svc      *induction.Service
	views    *views
	log      *slog.Logger
	shuffler questionnaire.Shuffler
	precheck bool
}

func currentUser(r *http.Request) *authmw.Identity {
	if id, ok := authmw.IdentityFromContext(r.Context()); ok {
		return &id
	}
	return nil
}

// fail maps load and forum errors onto a response. Unknown names are 404;
// everything else is a logged 500.
func (h *inductionHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, questionnaire.ErrNotFound) {
		h.renderError(w, r, http.StatusNotFound, "There is no induction with that name.")
		return
	}
	var defErr *questionnaire.DefinitionError
	if errors.As(err, &defErr) {
		h.log.Error("malformed questionnaire definition", "name", defErr.Name, "err", defErr.Err)
	} else {
		h.log.Error("request failed", "path", r.URL.Path, "err", err)
	}
	h.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please let the maintainers know.")
}

func (h *inductionHandlers) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	data := errorPage{page: page{User: currentUser(r)}, Status: http.StatusText(status), Message: msg}
	if err := h.views.render(w, status, "error", data); err != nil {
		h.log.Error("render error page", "err", err)
		http.Error(w, msg, status)
	}
}

func (h *inductionHandlers) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if err := h.views.render(w, status, name, data); err != nil {
		h.log.Error("render", "page", name, "err", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// GET /
func (h *inductionHandlers) Index(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "index", indexPage{page: page{User: currentUser(r)}, Names: names})
}

// GET /{name}, behind RequireLogin. Renders the unscored quiz in a fresh
// random order.
func (h *inductionHandlers) View(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	q, err := h.svc.Load(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	user := currentUser(r)

	already := false
	if h.precheck && user != nil {
		already, err = h.svc.IsAlreadyMember(r.Context(), name, user.MemberID)
		if err != nil {
			h.log.Warn("membership precheck failed", "name", name, "username", user.Username, "err", err)
		}
	}

	p := questionnaire.Arrange(q, h.shuffler)
	questions := make([]quizQuestion, 0, len(q.Questions))
	for _, qi := range p.QuestionOrder {
		qq := q.Questions[qi]
		answers := make([]quizAnswer, 0, len(qq.Answers))
		for _, ai := range p.AnswerOrder[qi] {
			answers = append(answers, quizAnswer{Index: ai, Text: qq.Answers[ai].Text})
		}
		questions = append(questions, quizQuestion{
			Field:   questionnaire.FieldName(qi),
			Text:    qq.Text,
			Answers: answers,
		})
	}
	h.render(w, r, http.StatusOK, "quiz", quizPage{
		page:          page{User: user},
		Title:         q.DisplayTitle(),
		Action:        "/" + url.PathEscape(name) + "/validate",
		AlreadyMember: already,
		Questions:     questions,
	})
}

// POST /{name}/validate. No login check here: the identity comes from the
// session set up when the quiz was viewed and is only needed to grant.
func (h *inductionHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	q, err := h.svc.Load(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.renderError(w, r, http.StatusBadRequest, "Could not read the submitted answers.")
			return
		}
		// PostForm keeps every pair that did decode.
		h.log.Debug("ignoring malformed form fields", "name", name, "err", err)
	}
	res := h.svc.Score(q, r.PostForm)

	user := currentUser(r)
	data := resultPage{
		page:     page{User: user},
		Name:     name,
		Title:    q.DisplayTitle(),
		Group:    induction.GroupName(name),
		Passed:   res.Passed,
		Total:    len(q.Questions),
		Wrong:    wrongItems(q, res),
		Answered: answeredItems(q, res),
	}

	status := http.StatusOK
	if res.Passed {
		if user == nil {
			status = http.StatusUnauthorized
		} else {
			if err := h.svc.Grant(r.Context(), name, user.Username); err != nil {
				h.fail(w, r, err)
				return
			}
			data.Granted = true
		}
	}
	h.log.Info("questionnaire scored", "name", name, "passed", res.Passed, "wrong", res.Wrong, "granted", data.Granted)
	h.render(w, r, status, "result", data)
}

func wrongItems(q questionnaire.Questionnaire, res induction.Result) []wrongItem {
	out := make([]wrongItem, 0, len(res.Wrong))
	for _, i := range res.Wrong {
		qq := q.Questions[i]
		out = append(out, wrongItem{Index: i, Number: i + 1, Text: qq.Text, Hint: qq.AnswerHint})
	}
	return out
}

// answeredItems echoes the response back in submission order, skipping
// indices that do not exist.
func answeredItems(q questionnaire.Questionnaire, res induction.Result) []answeredItem {
	out := []answeredItem{}
	for _, qi := range res.Response.Questions() {
		if qi < 0 || qi >= len(q.Questions) {
			continue
		}
		ai, _ := res.Response.Answer(qi)
		qq := q.Questions[qi]
		if ai < 0 || ai >= len(qq.Answers) {
			continue
		}
		out = append(out, answeredItem{Question: qq.Text, Answer: qq.Answers[ai].Text, Correct: res.Validity.At(qi)})
	}
	return out
}
