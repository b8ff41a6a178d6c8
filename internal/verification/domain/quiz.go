package domain

import (
	"context"
	"fmt"
	"math"

	"github.com/zktrails/zktrails/internal/catalog"
)

// quizAllowedMisses is how many wrong answers still pass a quiz.
const quizAllowedMisses = 1

// ScoreQuiz scores answers against questions in a single pass. Missing
// answers count as wrong.
func ScoreQuiz(questions []catalog.Question, answers map[string]int) QuizScore {
	s := QuizScore{Total: len(questions)}
	for _, q := range questions {
		if got, ok := answers[q.ID]; ok && got == q.CorrectIndex {
			s.Correct++
		}
	}
	s.Passed = s.Correct >= s.Total-quizAllowedMisses
	if s.Total > 0 {
		s.ScorePercent = int(math.Round(float64(s.Correct) / float64(s.Total) * 100))
	}
	return s
}

// QuizScorer scores quiz missions from the catalog.
type QuizScorer struct {
	missions MissionSource
}

// NewQuizScorer creates a QuizScorer.
func NewQuizScorer(missions MissionSource) *QuizScorer {
	return &QuizScorer{missions: missions}
}

// Score scores answers for a quiz mission.
func (q *QuizScorer) Score(missionID string, answers map[string]int) (QuizScore, error) {
	m, err := q.missions.Get(missionID)
	if err != nil {
		return QuizScore{}, fmt.Errorf("%w: %q", ErrNotFound, missionID)
	}
	if m.Method != catalog.MethodQuiz || m.Quiz == nil {
		return QuizScore{}, fmt.Errorf("%w: %q is not a quiz", ErrWrongMethod, missionID)
	}
	return ScoreQuiz(m.Quiz.Questions, answers), nil
}

// Verify implements Verifier for quiz missions.
func (q *QuizScorer) Verify(_ context.Context, a Attempt) (Result, error) {
	if a.Evidence.Answers == nil {
		return Result{}, fmt.Errorf("%w: answers are required", ErrInvalidInput)
	}
	if a.Mission.Quiz == nil {
		return Result{}, fmt.Errorf("%w: %q is not a quiz", ErrWrongMethod, a.Mission.ID)
	}
	return quizResult(ScoreQuiz(a.Mission.Quiz.Questions, a.Evidence.Answers)), nil
}

func quizResult(s QuizScore) Result {
	r := Result{Verified: s.Passed, Quiz: &s}
	if s.Passed {
		r.Reason = fmt.Sprintf("Quiz passed with %d/%d correct", s.Correct, s.Total)
	} else {
		r.Reason = fmt.Sprintf("Quiz failed with %d/%d correct, %d needed", s.Correct, s.Total, s.Total-quizAllowedMisses)
	}
	return r
}
