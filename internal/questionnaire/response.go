package questionnaire

import (
	"cmp"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var questionField = regexp.MustCompile(`^question_(\d+)$`)

// FieldName is the form field used for question i.
func FieldName(i int) string { return "question_" + strconv.Itoa(i) }

// Response maps question index to selected answer index. Keys keep the order
// in which they were first set.
type Response struct {
	order   []int
	answers map[int]int
}

func NewResponse() Response {
	return Response{answers: map[int]int{}}
}

// Set records answer a for question q. Re-setting a question overwrites the
// answer without moving it.
func (r *Response) Set(q, a int) {
	if r.answers == nil {
		r.answers = map[int]int{}
	}
	if _, ok := r.answers[q]; !ok {
		r.order = append(r.order, q)
	}
	r.answers[q] = a
}

func (r Response) Answer(q int) (int, bool) {
	a, ok := r.answers[q]
	return a, ok
}

// Questions returns the answered question indices in insertion order.
func (r Response) Questions() []int {
	return append([]int(nil), r.order...)
}

func (r Response) Len() int { return len(r.order) }

// Map returns a plain copy of the answers.
func (r Response) Map() map[int]int {
	out := make(map[int]int, len(r.answers))
	for k, v := range r.answers {
		out[k] = v
	}
	return out
}

// ParseResponse extracts question_<n> fields from a submitted form. Fields
// that do not match, or whose value is not an integer, are skipped. Fields are
// visited in question index order, ties broken by field name, so the result
// is deterministic.
func ParseResponse(fields url.Values) Response {
	type field struct {
		key string
		q   int
	}
	matched := make([]field, 0, len(fields))
	for k := range fields {
		m := questionField.FindStringSubmatch(k)
		if m == nil {
			continue
		}
		q, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		matched = append(matched, field{key: k, q: q})
	}
	slices.SortFunc(matched, func(a, b field) int {
		return cmp.Or(cmp.Compare(a.q, b.q), strings.Compare(a.key, b.key))
	})

	resp := NewResponse()
	for _, f := range matched {
		vals := fields[f.key]
		if len(vals) == 0 {
			continue
		}
		a, err := strconv.Atoi(strings.TrimSpace(vals[len(vals)-1]))
		if err != nil {
			continue
		}
		resp.Set(f.q, a)
	}
	return resp
}
