package induction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/bristolhackspace/induction/internal/forum"
	"github.com/bristolhackspace/induction/internal/questionnaire"
)

// Forum is the part of the forum API the induction flow needs.
type Forum interface {
	Group(ctx context.Context, name string) (forum.Group, error)
	AddGroupMember(ctx context.Context, groupID int64, username string) error
	UserByID(ctx context.Context, memberID int64) (forum.User, error)
}

// GroupName is the forum group granted for passing a questionnaire.
func GroupName(questionnaireName string) string {
	return questionnaireName + "_inducted"
}

type Service struct {
	src   questionnaire.Source
	forum Forum
	log   *slog.Logger
}

func NewService(src questionnaire.Source, f Forum, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{src: src, forum: f, log: log}
}

// Load returns the questionnaire; errors.Is(err, questionnaire.ErrNotFound)
// for unknown names.
func (s *Service) Load(ctx context.Context, name string) (questionnaire.Questionnaire, error) {
	return s.src.Load(ctx, name)
}

func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.src.List(ctx)
}

// Result is a scored submission.
type Result struct {
	Response questionnaire.Response
	Validity questionnaire.Validity
	Wrong    []int
	Passed   bool
}

// Score parses the submitted form and scores it against q.
func (s *Service) Score(q questionnaire.Questionnaire, fields url.Values) Result {
	resp := questionnaire.ParseResponse(fields)
	v := questionnaire.Validate(q.Questions, resp)
	return Result{Response: resp, Validity: v, Wrong: v.Wrong(), Passed: v.AllCorrect()}
}

// Grant adds username to the questionnaire's inducted group. A 422 from the
// forum means the user is already a member and counts as success; every other
// failure is returned. The call is not retried.
func (s *Service) Grant(ctx context.Context, name, username string) error {
	if username == "" {
		return errors.New("induction: grant without username")
	}
	group := GroupName(name)
	g, err := s.forum.Group(ctx, group)
	if err != nil {
		return fmt.Errorf("lookup group %q: %w", group, err)
	}
	err = s.forum.AddGroupMember(ctx, g.ID, username)
	switch {
	case err == nil:
		s.log.Info("granted membership", "group", group, "username", username)
		return nil
	case forum.IsStatus(err, http.StatusUnprocessableEntity):
		s.log.Info("already a member", "group", group, "username", username)
		return nil
	default:
		return fmt.Errorf("add %q to %q: %w", username, group, err)
	}
}

// IsAlreadyMember is an advisory check for display only; Grant does not rely
// on it.
func (s *Service) IsAlreadyMember(ctx context.Context, name string, memberID int64) (bool, error) {
	u, err := s.forum.UserByID(ctx, memberID)
	if err != nil {
		return false, fmt.Errorf("lookup member %d: %w", memberID, err)
	}
	return u.InGroup(GroupName(name)), nil
}
