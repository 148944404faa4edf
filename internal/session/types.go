package session

import (
	"context"
	"time"

	"evalia-interview-bot/internal/config"
	"evalia-interview-bot/internal/rubric"
)

// Mode представляет тип интервью
type Mode string

const (
	ModeHR        Mode = "hr"
	ModeTechnical Mode = "technical"
)

// Status представляет состояние сессии
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// Terminal сообщает, является ли состояние сессии финальным
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted
}

// TurnStatus представляет состояние хода
type TurnStatus string

const (
	TurnAwaitingAnswer TurnStatus = "awaiting_answer"
	TurnTranscribing   TurnStatus = "transcribing"
	TurnEvaluating     TurnStatus = "evaluating"
	TurnScored         TurnStatus = "scored"
	TurnFailed         TurnStatus = "failed"
)

// Terminal сообщает, является ли состояние хода финальным
func (s TurnStatus) Terminal() bool {
	return s == TurnScored || s == TurnFailed
}

// KnownTurnStatus проверяет, известен ли статус хода текущей версии схемы.
// Неизвестные статусы при загрузке трактуются как failed.
func KnownTurnStatus(s TurnStatus) bool {
	switch s {
	case TurnAwaitingAnswer, TurnTranscribing, TurnEvaluating, TurnScored, TurnFailed:
		return true
	}
	return false
}

// EvaluationResult представляет результат оценки одного ответа.
// После присвоения ходу не изменяется.
type EvaluationResult struct {
	Score           float64            `json:"score"`
	Feedback        string             `json:"feedback"`
	Dimensions      map[string]float64 `json:"dimensions,omitempty"`
	ImprovementTips []string           `json:"improvement_tips,omitempty"`
	KnowledgeGaps   []string           `json:"knowledge_gaps,omitempty"`
}

// Turn представляет один ход интервью: вопрос, ответ, оценка
type Turn struct {
	Index       int               `json:"index"`
	QuestionID  string            `json:"question_id"`
	Question    string            `json:"question"`
	AudioHandle string            `json:"audio_handle,omitempty"`
	Transcript  string            `json:"transcript,omitempty"`
	Result      *EvaluationResult `json:"result,omitempty"`
	Status      TurnStatus        `json:"status"`
	FailReason  string            `json:"fail_reason,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Session представляет одну сессию интервью
type Session struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidate_id"`
	Mode        Mode      `json:"mode"`
	Domain      string    `json:"domain"`
	Turns       []Turn    `json:"turns"`
	Status      Status    `json:"status"`
	AbortReason string    `json:"abort_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ActiveTurn возвращает не-терминальный ход сессии, если он есть.
// Инвариант: такой ход не более одного.
func (s *Session) ActiveTurn() *Turn {
	for i := range s.Turns {
		if !s.Turns[i].Status.Terminal() {
			return &s.Turns[i]
		}
	}
	return nil
}

// CurrentTurn возвращает последний ход сессии, если он есть
func (s *Session) CurrentTurn() *Turn {
	if len(s.Turns) == 0 {
		return nil
	}
	return &s.Turns[len(s.Turns)-1]
}

// ScoredCount возвращает количество оцененных ходов
func (s *Session) ScoredCount() int {
	count := 0
	for i := range s.Turns {
		if s.Turns[i].Status == TurnScored {
			count++
		}
	}
	return count
}

// AllTurnsTerminal сообщает, все ли ходы сессии завершены
func (s *Session) AllTurnsTerminal() bool {
	return s.ActiveTurn() == nil
}

// Summary представляет сводку сессии для дашборда
type Summary struct {
	SessionID    string    `json:"session_id"`
	CandidateID  string    `json:"candidate_id"`
	Mode         Mode      `json:"mode"`
	Domain       string    `json:"domain"`
	Status       Status    `json:"status"`
	TurnCount    int       `json:"turn_count"`
	ScoredCount  int       `json:"scored_count"`
	SummaryScore float64   `json:"summary_score"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store — контракт хранилища прогресса. Записи идемпотентны:
// сессии по ключу session_id, ходы по ключу (session_id, turn_index).
type Store interface {
	SaveSession(ctx context.Context, s *Session) error
	SaveTurn(ctx context.Context, sessionID string, t *Turn) error
	LoadSession(ctx context.Context, sessionID string) (*Session, error)
	ListSessions(ctx context.Context, candidateID string) ([]Summary, error)
}

// Transcriber — адаптер внешнего сервиса распознавания речи
type Transcriber interface {
	Transcribe(ctx context.Context, audioHandle string) (string, error)
}

// Evaluator — адаптер внешнего сервиса оценки ответов
type Evaluator interface {
	Evaluate(ctx context.Context, question, answer string, r rubric.Rubric) (*EvaluationResult, error)
}

// Predictor определяет домен интервью по описанию вакансии.
// Всегда возвращает валидный домен каталога, при сбое — домен по умолчанию.
type Predictor interface {
	Predict(ctx context.Context, jobDescription string) config.Domain
}
