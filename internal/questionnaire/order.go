package questionnaire

import "math/rand/v2"

// Shuffler draws a permutation of [0,n).
type Shuffler interface {
	Perm(n int) []int
}

// RandomShuffler uses the global math/rand/v2 source, which is safe for
// concurrent use.
type RandomShuffler struct{}

func (RandomShuffler) Perm(n int) []int {
	if n <= 0 {
		return []int{}
	}
	return rand.Perm(n)
}

// Presentation is the display order for one render. It never feeds back into
// scoring.
type Presentation struct {
	QuestionOrder []int
	AnswerOrder   [][]int // indexed by question, not by display position
}

// Arrange draws a question order and, independently, an answer order for
// every question.
func Arrange(q Questionnaire, s Shuffler) Presentation {
	if s == nil {
		s = RandomShuffler{}
	}
	p := Presentation{
		QuestionOrder: s.Perm(len(q.Questions)),
		AnswerOrder:   make([][]int, len(q.Questions)),
	}
	for i, qq := range q.Questions {
		p.AnswerOrder[i] = s.Perm(len(qq.Answers))
	}
	return p
}
