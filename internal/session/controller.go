package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"evalia-interview-bot/internal/config"
	"evalia-interview-bot/internal/metrics"
	"evalia-interview-bot/internal/rubric"
)

// Controller выбирает следующий вопрос и ведет конвейер обработки ответа.
// Переходы состояний и блокировки — зона ответственности Engine.
type Controller struct {
	catalog           *config.Catalog
	rubrics           map[string]rubric.Rubric
	transcriber       Transcriber
	evaluator         Evaluator
	transcribeTimeout time.Duration
	evaluateTimeout   time.Duration
}

// NewController создает новый контроллер ходов
func NewController(
	catalog *config.Catalog,
	rubrics map[string]rubric.Rubric,
	transcriber Transcriber,
	evaluator Evaluator,
	transcribeTimeout, evaluateTimeout time.Duration,
) *Controller {
	return &Controller{
		catalog:           catalog,
		rubrics:           rubrics,
		transcriber:       transcriber,
		evaluator:         evaluator,
		transcribeTimeout: transcribeTimeout,
		evaluateTimeout:   evaluateTimeout,
	}
}

// appendTurn добавляет следующий ход сессии.
// Предусловие: ни один ход сессии не находится в не-терминальном статусе.
// Вопросы выбираются из банка домена по порядку, без повторов.
func (c *Controller) appendTurn(s *Session) (*Turn, error) {
	if t := s.ActiveTurn(); t != nil {
		return nil, fmt.Errorf("%w: ход %d еще не завершен", ErrConcurrencyViolation, t.Index)
	}

	dom, ok := c.catalog.DomainByID(s.Domain)
	if !ok {
		dom = c.catalog.Default()
	}

	next := len(s.Turns)
	if next >= len(dom.Questions) {
		return nil, ErrQuestionBankExhausted
	}

	q := dom.Questions[next]
	now := time.Now().UTC()
	s.Turns = append(s.Turns, Turn{
		Index:      next,
		QuestionID: q.ID,
		Question:   q.Text,
		Status:     TurnAwaitingAnswer,
		CreatedAt:  now,
		UpdatedAt:  now,
	})

	return &s.Turns[next], nil
}

// transcribe вызывает адаптер распознавания речи с таймаутом
func (c *Controller) transcribe(ctx context.Context, audioHandle string) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, c.transcribeTimeout)
	defer cancel()
	text, err := c.transcriber.Transcribe(tctx, audioHandle)
	metrics.AdapterCall("transcribe", err == nil)
	return text, err
}

// evaluate вызывает адаптер оценки с таймаутом
func (c *Controller) evaluate(ctx context.Context, s *Session, question, transcript string) (*EvaluationResult, error) {
	ectx, cancel := context.WithTimeout(ctx, c.evaluateTimeout)
	defer cancel()
	result, err := c.evaluator.Evaluate(ectx, question, transcript, c.rubricFor(s))
	metrics.AdapterCall("evaluate", err == nil)
	return result, err
}

// rubricFor возвращает рубрику для оценки ответов сессии.
// HR-режим использует рубрику "hr", если она определена.
func (c *Controller) rubricFor(s *Session) rubric.Rubric {
	if s.Mode == ModeHR {
		if r, ok := c.rubrics["hr"]; ok {
			return r
		}
	}

	dom, ok := c.catalog.DomainByID(s.Domain)
	if !ok {
		dom = c.catalog.Default()
	}
	if r, ok := c.rubrics[dom.Rubric]; ok {
		return r
	}
	return rubric.Rubric{}
}

// failReasonFor превращает ошибку адаптера в причину отказа хода
func failReasonFor(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailReasonTimeout
	}
	return err.Error()
}
