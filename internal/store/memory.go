package store

import (
	"context"
	"sort"
	"sync"

	"evalia-interview-bot/internal/session"
)

// MemoryStore — хранилище прогресса в памяти. Используется в тестах
// и как запасной вариант без долговременного хранилища.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]session.Session
	turns    map[string][]session.Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]session.Session),
		turns:    make(map[string][]session.Turn),
	}
}

// SaveSession сохраняет заголовок сессии. Upsert по session_id.
func (m *MemoryStore) SaveSession(_ context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	header := *s
	header.Turns = nil
	m.sessions[s.ID] = header
	return nil
}

// SaveTurn сохраняет ход. Upsert по (session_id, turn_index):
// повторная идентичная запись не создает второй записи.
func (m *MemoryStore) SaveTurn(_ context.Context, sessionID string, t *session.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := m.turns[sessionID]
	copied := copyTurn(t)
	for i := range turns {
		if turns[i].Index == t.Index {
			turns[i] = copied
			return nil
		}
	}
	m.turns[sessionID] = append(turns, copied)
	return nil
}

// LoadSession возвращает сессию со всеми ходами в порядке индексов
func (m *MemoryStore) LoadSession(_ context.Context, sessionID string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	header, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	s := header
	for i := range m.turns[sessionID] {
		t := copyTurn(&m.turns[sessionID][i])
		normalizeTurn(&t)
		s.Turns = append(s.Turns, t)
	}
	sort.Slice(s.Turns, func(i, j int) bool { return s.Turns[i].Index < s.Turns[j].Index })
	return &s, nil
}

// ListSessions возвращает сводки сессий кандидата по возрастанию времени создания
func (m *MemoryStore) ListSessions(_ context.Context, candidateID string) ([]session.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var summaries []session.Summary
	for id, header := range m.sessions {
		if header.CandidateID != candidateID {
			continue
		}
		turns := m.turns[id]
		score, _ := session.ComputeSummaryScore(turns)
		scored := 0
		for i := range turns {
			if turns[i].Status == session.TurnScored {
				scored++
			}
		}
		summaries = append(summaries, session.Summary{
			SessionID:    header.ID,
			CandidateID:  header.CandidateID,
			Mode:         header.Mode,
			Domain:       header.Domain,
			Status:       header.Status,
			TurnCount:    len(turns),
			ScoredCount:  scored,
			SummaryScore: score,
			CreatedAt:    header.CreatedAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// copyTurn делает глубокую копию хода, чтобы хранилище не делило
// память с вызывающим
func copyTurn(t *session.Turn) session.Turn {
	copied := *t
	if t.Result != nil {
		result := *t.Result
		if t.Result.Dimensions != nil {
			result.Dimensions = make(map[string]float64, len(t.Result.Dimensions))
			for k, v := range t.Result.Dimensions {
				result.Dimensions[k] = v
			}
		}
		result.ImprovementTips = append([]string(nil), t.Result.ImprovementTips...)
		result.KnowledgeGaps = append([]string(nil), t.Result.KnowledgeGaps...)
		copied.Result = &result
	}
	return copied
}
