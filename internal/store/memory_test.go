package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"evalia-interview-bot/internal/session"
)

func sampleSession(id, candidateID string) *session.Session {
	now := time.Now().UTC()
	return &session.Session{
		ID:          id,
		CandidateID: candidateID,
		Mode:        session.ModeTechnical,
		Domain:      "backend",
		Status:      session.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func sampleTurn(index int, status session.TurnStatus) *session.Turn {
	now := time.Now().UTC()
	t := &session.Turn{
		Index:      index,
		QuestionID: "be-1",
		Question:   "Вопрос",
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if status == session.TurnScored {
		t.Result = &session.EvaluationResult{Score: 80, Feedback: "Хорошо"}
	}
	return t
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	st := NewMemoryStore()

	_, err := st.LoadSession(context.Background(), "нет-такой")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено: %v", err)
	}
}

func TestMemoryStoreSaveTurnUpsert(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	if err := st.SaveSession(ctx, sampleSession("s1", "tg-1")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	turn := sampleTurn(0, session.TurnAwaitingAnswer)
	if err := st.SaveTurn(ctx, "s1", turn); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}

	// Повторная запись того же хода не создает дубликата
	turn.Status = session.TurnScored
	turn.Result = &session.EvaluationResult{Score: 90}
	if err := st.SaveTurn(ctx, "s1", turn); err != nil {
		t.Fatalf("SaveTurn повторно: %v", err)
	}

	loaded, err := st.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if len(loaded.Turns) != 1 {
		t.Fatalf("ожидался 1 ход, получено %d", len(loaded.Turns))
	}
	if loaded.Turns[0].Status != session.TurnScored {
		t.Errorf("статус не обновлен: %s", loaded.Turns[0].Status)
	}
	if loaded.Turns[0].Result.Score != 90 {
		t.Errorf("результат не обновлен: %v", loaded.Turns[0].Result)
	}
}

func TestMemoryStoreTurnOrder(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	if err := st.SaveSession(ctx, sampleSession("s1", "tg-1")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	// Записываем ходы в обратном порядке
	for _, i := range []int{2, 0, 1} {
		if err := st.SaveTurn(ctx, "s1", sampleTurn(i, session.TurnScored)); err != nil {
			t.Fatalf("SaveTurn %d: %v", i, err)
		}
	}

	loaded, err := st.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	for i, turn := range loaded.Turns {
		if turn.Index != i {
			t.Errorf("ход %d имеет индекс %d", i, turn.Index)
		}
	}
}

func TestMemoryStoreUnknownStatusBecomesFailed(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	if err := st.SaveSession(ctx, sampleSession("s1", "tg-1")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	turn := sampleTurn(0, session.TurnStatus("reviewing"))
	if err := st.SaveTurn(ctx, "s1", turn); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}

	loaded, err := st.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if loaded.Turns[0].Status != session.TurnFailed {
		t.Errorf("неизвестный статус должен стать failed, получен %s", loaded.Turns[0].Status)
	}
	if loaded.Turns[0].FailReason != "unknown_status" {
		t.Errorf("ожидалась причина unknown_status, получена %q", loaded.Turns[0].FailReason)
	}
}

func TestMemoryStoreListSessions(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	s1 := sampleSession("s1", "tg-1")
	s1.CreatedAt = time.Now().UTC().Add(-time.Hour)
	s2 := sampleSession("s2", "tg-1")
	other := sampleSession("s3", "tg-2")

	for _, s := range []*session.Session{s2, s1, other} {
		if err := st.SaveSession(ctx, s); err != nil {
			t.Fatalf("SaveSession %s: %v", s.ID, err)
		}
	}
	if err := st.SaveTurn(ctx, "s1", sampleTurn(0, session.TurnScored)); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}

	summaries, err := st.ListSessions(ctx, "tg-1")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("ожидалось 2 сводки, получено %d", len(summaries))
	}
	if summaries[0].SessionID != "s1" || summaries[1].SessionID != "s2" {
		t.Errorf("сводки не упорядочены по времени создания: %s, %s", summaries[0].SessionID, summaries[1].SessionID)
	}
	if summaries[0].ScoredCount != 1 || summaries[0].SummaryScore != 80 {
		t.Errorf("сводка s1 неверна: %+v", summaries[0])
	}
}

func TestMemoryStoreCopiesResult(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	if err := st.SaveSession(ctx, sampleSession("s1", "tg-1")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	turn := sampleTurn(0, session.TurnScored)
	if err := st.SaveTurn(ctx, "s1", turn); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}

	// Мутация исходного результата не должна влиять на хранилище
	turn.Result.Score = 5

	loaded, err := st.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if loaded.Turns[0].Result.Score != 80 {
		t.Errorf("хранилище делит память с вызывающим: %v", loaded.Turns[0].Result.Score)
	}
}
