package session

import "errors"

var (
	// ErrConcurrencyViolation — нарушение дисциплины одного активного хода:
	// конкурирующая операция над той же сессией или ответ не на текущий ход
	ErrConcurrencyViolation = errors.New("конкурирующая операция над сессией")

	// ErrSessionNotActive — операция допустима только для активной сессии
	ErrSessionNotActive = errors.New("сессия не активна")

	// ErrSessionNotCompleted — итоговый балл вычислим только для завершенной сессии
	ErrSessionNotCompleted = errors.New("сессия не завершена")

	// ErrQuestionBankExhausted — банк вопросов домена исчерпан
	ErrQuestionBankExhausted = errors.New("банк вопросов исчерпан")

	// ErrNoScoredTurns — нет ни одного оцененного хода
	ErrNoScoredTurns = errors.New("нет ни одного оцененного хода")
)

// Причины отказа хода, сохраняемые в FailReason
const (
	FailReasonTimeout = "timeout"
	FailReasonAborted = "aborted"
)
