// Package evaluate оборачивает внешний сервис оценки ответов.
// Бэкенд (OpenAI или Groq) выбирается конфигурацией при сборке клиента.
package evaluate

import (
	"context"
	"encoding/json"
	"fmt"

	"evalia-interview-bot/internal/api"
	"evalia-interview-bot/internal/prompts"
	"evalia-interview-bot/internal/rubric"
	"evalia-interview-bot/internal/session"
)

// EvaluationError — сбой оценки ответа с причиной
type EvaluationError struct {
	Reason string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ошибка оценки (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ошибка оценки (%s)", e.Reason)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Service оценивает ответ кандидата по рубрике через chat completions API
type Service struct {
	client      *api.Client
	domainTitle string
}

func New(client *api.Client) *Service {
	return &Service{client: client}
}

// WithDomainTitle добавляет название домена в контекст промпта
func (s *Service) WithDomainTitle(title string) *Service {
	return &Service{client: s.client, domainTitle: title}
}

type evaluationPayload struct {
	Score           float64            `json:"score"`
	Feedback        string             `json:"feedback"`
	Dimensions      map[string]float64 `json:"dimensions"`
	ImprovementTips []string           `json:"improvement_tips"`
	KnowledgeGaps   []string           `json:"knowledge_gaps"`
}

// Evaluate оценивает ответ на вопрос и возвращает результат с баллом 0-100
func (s *Service) Evaluate(ctx context.Context, question, answer string, r rubric.Rubric) (*session.EvaluationResult, error) {
	prompt := prompts.BuildEvaluationPrompt(question, answer, r, s.domainTitle)

	content, err := s.client.ChatJSON(ctx, []api.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, &EvaluationError{Reason: "backend", Err: err}
	}

	var payload evaluationPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, &EvaluationError{Reason: "response_parse", Err: err}
	}

	return &session.EvaluationResult{
		Score:           clampScore(payload.Score),
		Feedback:        payload.Feedback,
		Dimensions:      clampDimensions(payload.Dimensions),
		ImprovementTips: payload.ImprovementTips,
		KnowledgeGaps:   payload.KnowledgeGaps,
	}, nil
}

// clampScore приводит балл к диапазону [0, 100]
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func clampDimensions(dims map[string]float64) map[string]float64 {
	if dims == nil {
		return nil
	}
	clamped := make(map[string]float64, len(dims))
	for name, score := range dims {
		clamped[name] = clampScore(score)
	}
	return clamped
}
