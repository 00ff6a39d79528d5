package learning

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/user"
)

var errQuizEmpty = errors.New("quiz has no questions")

func (svc *service) CreateQuiz(ctx context.Context, usr user.User, moduleID string, nq NewQuiz) (Quiz, error) {
	module, err := svc.repo.GetModuleByID(ctx, moduleID)
	if err != nil {
		return Quiz{}, err
	}
	path, err := svc.repo.GetPathByID(ctx, module.PathID)
	if err != nil {
		return Quiz{}, err
	}
	if path.CreatorID != usr.ID && !usr.IsAdmin() {
		return Quiz{}, ErrNotPathOwner
	}

	quiz := Quiz{
		ModuleID:     module.ID,
		Title:        nq.Title,
		PassingScore: nq.PassingScore,
	}
	return svc.repo.CreateQuiz(ctx, quiz)
}

func (svc *service) AddQuestion(ctx context.Context, usr user.User, quizID string, nq NewQuestion) (Question, error) {
	quiz, err := svc.repo.GetQuizByID(ctx, quizID)
	if err != nil {
		return Question{}, err
	}
	module, err := svc.repo.GetModuleByID(ctx, quiz.ModuleID)
	if err != nil {
		return Question{}, err
	}
	path, err := svc.repo.GetPathByID(ctx, module.PathID)
	if err != nil {
		return Question{}, err
	}
	if path.CreatorID != usr.ID && !usr.IsAdmin() {
		return Question{}, ErrNotPathOwner
	}

	question := Question{QuizID: quiz.ID, Text: nq.Text}
	for _, choice := range nq.Choices {
		question.Choices = append(question.Choices, Choice{
			Text:      choice.Text,
			IsCorrect: choice.IsCorrect,
		})
	}
	return svc.repo.CreateQuestion(ctx, question)
}

func (svc *service) GetQuiz(ctx context.Context, quizID string) (Quiz, []Question, error) {
	quiz, err := svc.repo.GetQuizByID(ctx, quizID)
	if err != nil {
		return Quiz{}, nil, err
	}
	questions, err := svc.repo.QueryQuestions(ctx, quiz.ID)
	if err != nil {
		return Quiz{}, nil, errors.Wrap(err, "querying questions")
	}
	return quiz, questions, nil
}

// EvaluateQuiz grades usr's answers against the quiz. A pass marks the owning
// module fully complete and rewards the completion; a fail records the score
// with partial completion. Unanswered questions count as wrong.
func (svc *service) EvaluateQuiz(ctx context.Context, usr user.User, quizID string, answers QuizAnswers) (QuizResult, error) {
	quiz, err := svc.repo.GetQuizByID(ctx, quizID)
	if err != nil {
		return QuizResult{}, err
	}
	questions, err := svc.repo.QueryQuestions(ctx, quiz.ID)
	if err != nil {
		return QuizResult{}, errors.Wrap(err, "querying questions")
	}
	if len(questions) == 0 {
		return QuizResult{}, core.NewValidationError(errQuizEmpty)
	}

	var correct int
	for _, question := range questions {
		chosen, ok := answers[question.ID]
		if !ok {
			continue
		}
		for _, choice := range question.Choices {
			if choice.ID == chosen && choice.IsCorrect {
				correct++
				break
			}
		}
	}

	score := correct * 100 / len(questions)
	passed := score >= quiz.PassingScore

	if err = core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		now := core.NowFunc().UTC()

		progress, err := svc.repo.GetProgress(ctx, usr.ID, quiz.ModuleID, tx)
		switch err {
		case nil:
		case ErrProgressNotFound:
			progress = Progress{UserID: usr.ID, ModuleID: quiz.ModuleID, StartedAt: now}
		default:
			return errors.Wrap(err, "getting progress")
		}

		progress.LastScore = null.IntFrom(score)
		if passed {
			progress.CompletionPercent = 100
			progress.CompletedAt = null.TimeFrom(now)
		} else {
			progress.CompletionPercent = 50
		}
		if _, err = svc.repo.UpsertProgress(ctx, progress, tx); err != nil {
			return errors.Wrap(err, "upserting progress")
		}

		if passed {
			if _, err = svc.gameSvc.AwardPointsTx(ctx, tx, &usr, gamify.ActionCompleteQuiz, fmt.Sprintf("Quiz %s", quiz.Title)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return QuizResult{}, err
	}

	if passed {
		svc.refreshLeaderboard(ctx)
	}
	return QuizResult{
		QuizID:         quiz.ID,
		ScorePercent:   score,
		Passed:         passed,
		TotalQuestions: len(questions),
		CorrectAnswers: correct,
	}, nil
}
