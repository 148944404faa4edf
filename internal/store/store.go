// Package store реализует хранилище прогресса интервью: устойчивая запись
// сессий, ходов и оценок для возобновления и дашборда.
package store

import (
	"errors"
	"fmt"

	"evalia-interview-bot/internal/session"
)

// ErrNotFound — сессия отсутствует в хранилище
var ErrNotFound = errors.New("сессия не найдена")

// StorageError — сбой записи или чтения хранилища. Машина состояний
// повторяет операцию с ограниченным backoff, прежде чем отдать ошибку выше.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ошибка хранилища (%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// normalizeTurn приводит загруженный ход к известной схеме.
// Неизвестный статус трактуется как failed, а не отклоняет всю сессию.
func normalizeTurn(t *session.Turn) {
	if !session.KnownTurnStatus(t.Status) {
		t.Status = session.TurnFailed
		if t.FailReason == "" {
			t.FailReason = "unknown_status"
		}
	}
}
