package questionnaire

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isPerm(t *testing.T, p []int, n int) {
	t.Helper()
	require.Len(t, p, n)
	sorted := append([]int(nil), p...)
	sort.Ints(sorted)
	for i, v := range sorted {
		assert.Equal(t, i, v)
	}
}

func TestRandomShufflerPermutations(t *testing.T) {
	s := RandomShuffler{}
	for n := 0; n <= 12; n++ {
		isPerm(t, s.Perm(n), n)
	}
	assert.Empty(t, s.Perm(-1))
}

// reverseShuffler is deterministic so the arrangement can be asserted.
type reverseShuffler struct{ calls []int }

func (r *reverseShuffler) Perm(n int) []int {
	r.calls = append(r.calls, n)
	out := make([]int, n)
	for i := range out {
		out[i] = n - 1 - i
	}
	return out
}

func TestArrange(t *testing.T) {
	q := Questionnaire{Questions: sample()}
	s := &reverseShuffler{}
	p := Arrange(q, s)

	assert.Equal(t, []int{2, 1, 0}, p.QuestionOrder)
	require.Len(t, p.AnswerOrder, 3)
	assert.Equal(t, []int{1, 0}, p.AnswerOrder[0])
	assert.Equal(t, []int{2, 1, 0}, p.AnswerOrder[1])
	assert.Equal(t, []int{3, 2, 3, 2}, s.calls, "one draw for questions, then one per question")
}

func TestArrangeRandomIsPermutation(t *testing.T) {
	q := Questionnaire{Questions: sample()}
	for i := 0; i < 50; i++ {
		p := Arrange(q, nil)
		isPerm(t, p.QuestionOrder, len(q.Questions))
		for j, qq := range q.Questions {
			isPerm(t, p.AnswerOrder[j], len(qq.Answers))
		}
	}
}

func TestArrangeDoesNotAffectScoring(t *testing.T) {
	q := Questionnaire{Questions: sample()}
	resp := responseOf(0, 0, 1, 1)
	before := Validate(q.Questions, resp)
	_ = Arrange(q, nil)
	assert.Equal(t, before, Validate(q.Questions, resp))
}

func TestArrangeEmpty(t *testing.T) {
	p := Arrange(Questionnaire{}, nil)
	assert.Empty(t, p.QuestionOrder)
	assert.Empty(t, p.AnswerOrder)
}
