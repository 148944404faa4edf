package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"evalia-interview-bot/internal/config"
	"evalia-interview-bot/internal/metrics"
)

// AbortReasonNoScoredAnswers — банк вопросов исчерпан, но ни один ответ не оценен:
// завершить такую сессию нельзя, она прерывается
const AbortReasonNoScoredAnswers = "no_scored_answers"

// guard — блокировки одной сессии. mu защищает короткие переходы состояний,
// op — слот операции begin_turn/submit_answer: конкурирующий вызов получает
// ErrConcurrencyViolation, а не ждет. Abort берет только mu и поэтому
// разрешен во время внешнего вызова конвейера.
type guard struct {
	mu sync.Mutex
	op sync.Mutex
}

// Engine — машина состояний сессий интервью. Владеет жизненным циклом сессии,
// сериализует переходы и фиксирует их в хранилище прогресса.
type Engine struct {
	catalog    *config.Catalog
	predictor  Predictor
	store      Store
	controller *Controller
	retry      config.RetryConfig

	gmu    sync.Mutex
	guards map[string]*guard
}

// NewEngine создает новую машину состояний сессий
func NewEngine(catalog *config.Catalog, predictor Predictor, store Store, controller *Controller, retry config.RetryConfig) *Engine {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = 200 * time.Millisecond
	}
	return &Engine{
		catalog:    catalog,
		predictor:  predictor,
		store:      store,
		controller: controller,
		retry:      retry,
		guards:     make(map[string]*guard),
	}
}

func (e *Engine) guardFor(sessionID string) *guard {
	e.gmu.Lock()
	defer e.gmu.Unlock()
	g, ok := e.guards[sessionID]
	if !ok {
		g = &guard{}
		e.guards[sessionID] = g
	}
	return g
}

// StartSession запускает предиктор домена по описанию вакансии и создает
// активную сессию. Сбой классификации никогда не блокирует старт:
// предиктор возвращает домен по умолчанию.
// При ошибке хранилища сессия возвращается вместе с ошибкой, чтобы
// вызывающий мог повторить запись, не потеряв состояние.
func (e *Engine) StartSession(ctx context.Context, candidateID string, mode Mode, jobDescription string) (*Session, error) {
	dom := e.predictor.Predict(ctx, jobDescription)

	now := time.Now().UTC()
	s := &Session{
		ID:          uuid.NewString(),
		CandidateID: candidateID,
		Mode:        mode,
		Domain:      dom.ID,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := e.persistSession(ctx, s); err != nil {
		return s, err
	}

	metrics.SessionStarted()
	log.Printf("Сессия %s начата: кандидат=%s режим=%s домен=%s", s.ID, candidateID, mode, dom.ID)
	return s, nil
}

// ResumeSession загружает сессию из хранилища прогресса
func (e *Engine) ResumeSession(ctx context.Context, sessionID string) (*Session, error) {
	return e.store.LoadSession(ctx, sessionID)
}

// History возвращает сводки сессий кандидата для дашборда,
// упорядоченные по времени создания
func (e *Engine) History(ctx context.Context, candidateID string) ([]Summary, error) {
	return e.store.ListSessions(ctx, candidateID)
}

// BeginTurn добавляет следующий ход и возвращает его копию с текстом вопроса.
// Конкурирующий вызов для той же сессии завершается ErrConcurrencyViolation.
func (e *Engine) BeginTurn(ctx context.Context, s *Session) (*Turn, error) {
	g := e.guardFor(s.ID)
	if !g.op.TryLock() {
		return nil, ErrConcurrencyViolation
	}
	defer g.op.Unlock()

	return e.beginTurn(ctx, s, g)
}

// beginTurn — тело BeginTurn. Предусловие: слот op захвачен.
func (e *Engine) beginTurn(ctx context.Context, s *Session, g *guard) (*Turn, error) {
	g.mu.Lock()
	if s.Status != StatusActive {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: статус %s", ErrSessionNotActive, s.Status)
	}

	t, err := e.controller.appendTurn(s)
	if err != nil {
		g.mu.Unlock()
		return nil, err
	}
	s.UpdatedAt = t.CreatedAt
	turnSnap := *t
	sessSnap := *s
	g.mu.Unlock()

	if err := e.persistTurn(ctx, s.ID, &turnSnap); err != nil {
		return &turnSnap, err
	}
	if err := e.persistSession(ctx, &sessSnap); err != nil {
		return &turnSnap, err
	}

	metrics.TurnBegun()
	return &turnSnap, nil
}

// Advance продвигает сессию: добавляет следующий ход, а при исчерпании
// банка вопросов завершает сессию. Возвращает (nil, nil), когда сессия
// перешла в терминальное состояние — статус доступен в самой сессии.
func (e *Engine) Advance(ctx context.Context, s *Session) (*Turn, error) {
	g := e.guardFor(s.ID)
	if !g.op.TryLock() {
		return nil, ErrConcurrencyViolation
	}
	defer g.op.Unlock()

	t, err := e.beginTurn(ctx, s, g)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrQuestionBankExhausted) {
		return nil, err
	}

	// Банк исчерпан: все ходы терминальны. Сессия завершается, если
	// оценен хотя бы один ход, иначе прерывается.
	g.mu.Lock()
	if s.Status != StatusActive {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: статус %s", ErrSessionNotActive, s.Status)
	}
	now := time.Now().UTC()
	if s.ScoredCount() > 0 {
		s.Status = StatusCompleted
	} else {
		s.Status = StatusAborted
		s.AbortReason = AbortReasonNoScoredAnswers
	}
	s.UpdatedAt = now
	sessSnap := *s
	g.mu.Unlock()

	if err := e.persistSession(ctx, &sessSnap); err != nil {
		return nil, err
	}

	if sessSnap.Status == StatusCompleted {
		metrics.SessionCompleted()
		log.Printf("Сессия %s завершена: %d ходов, %d оценено", s.ID, len(sessSnap.Turns), sessSnap.ScoredCount())
	} else {
		metrics.SessionAborted()
		log.Printf("Сессия %s прервана: %s", s.ID, sessSnap.AbortReason)
	}
	return nil, nil
}

// SubmitAnswer обрабатывает ответ кандидата на текущий ход:
// transcribing → evaluating → scored. Сбой транскрипции или оценки переводит
// ход в failed с причиной — сессия продолжается. Повторная отправка того же
// audio handle на уже завершенный ход идемпотентна и возвращает сохраненный
// результат. Ответ не на текущий ход — ErrConcurrencyViolation.
func (e *Engine) SubmitAnswer(ctx context.Context, s *Session, turnIndex int, audioHandle string) (*Turn, error) {
	g := e.guardFor(s.ID)
	if !g.op.TryLock() {
		return nil, ErrConcurrencyViolation
	}
	defer g.op.Unlock()

	// Предусловия и переход awaiting_answer → transcribing
	g.mu.Lock()
	if s.Status != StatusActive {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: статус %s", ErrSessionNotActive, s.Status)
	}
	if turnIndex < 0 || turnIndex >= len(s.Turns) {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: ход %d не существует", ErrConcurrencyViolation, turnIndex)
	}
	t := &s.Turns[turnIndex]

	// Идемпотентный повтор: тот же handle на завершенном ходе возвращает
	// сохраненный результат. Запись повторяется — upsert идемпотентен,
	// а повтор после сбоя хранилища доводит финальный статус до диска.
	if t.Status.Terminal() && audioHandle != "" && t.AudioHandle == audioHandle {
		snap := *t
		g.mu.Unlock()
		return &snap, e.persistTurn(ctx, s.ID, &snap)
	}

	cur := s.CurrentTurn()
	if cur == nil || cur.Index != turnIndex || t.Status != TurnAwaitingAnswer {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: ход %d не является текущим ожидающим ответа", ErrConcurrencyViolation, turnIndex)
	}

	now := time.Now().UTC()
	t.AudioHandle = audioHandle
	t.Status = TurnTranscribing
	t.UpdatedAt = now
	snap := *t
	g.mu.Unlock()

	if err := e.persistTurn(ctx, s.ID, &snap); err != nil {
		// Переход откатывается, чтобы повторная отправка ответа была возможна
		g.mu.Lock()
		if t.Status == TurnTranscribing {
			t.Status = TurnAwaitingAnswer
			t.AudioHandle = ""
			t.UpdatedAt = time.Now().UTC()
		}
		snap = *t
		g.mu.Unlock()
		return &snap, err
	}

	// Транскрипция — вне критической секции
	transcript, terr := e.controller.transcribe(ctx, audioHandle)

	snap, done, err := e.commitTranscription(ctx, s, g, turnIndex, transcript, terr)
	if done || err != nil {
		return &snap, err
	}

	// Оценка — вне критической секции
	result, eerr := e.controller.evaluate(ctx, s, snap.Question, snap.Transcript)

	snap, err = e.commitEvaluation(ctx, s, g, turnIndex, result, eerr)
	return &snap, err
}

// commitTranscription фиксирует исход транскрипции.
// done=true означает, что конвейер остановлен (отказ хода или прерванная сессия).
func (e *Engine) commitTranscription(ctx context.Context, s *Session, g *guard, turnIndex int, transcript string, terr error) (Turn, bool, error) {
	g.mu.Lock()
	t := &s.Turns[turnIndex]

	// Сессия прервана во время внешнего вызова: результат отбрасывается
	if s.Status != StatusActive || t.Status.Terminal() {
		e.failTurnLocked(t)
		snap := *t
		g.mu.Unlock()
		return snap, true, e.persistTurn(ctx, s.ID, &snap)
	}

	if terr != nil {
		t.Status = TurnFailed
		t.FailReason = failReasonFor(terr)
		t.UpdatedAt = time.Now().UTC()
		snap := *t
		g.mu.Unlock()
		metrics.TurnFailed()
		log.Printf("Сессия %s: транскрипция хода %d не удалась: %s", s.ID, turnIndex, snap.FailReason)
		return snap, true, e.persistTurn(ctx, s.ID, &snap)
	}

	t.Transcript = transcript
	t.Status = TurnEvaluating
	t.UpdatedAt = time.Now().UTC()
	snap := *t
	g.mu.Unlock()

	// Промежуточный статус: сбой записи не останавливает конвейер,
	// при падении процесса теряется не более текущего хода
	if err := e.persistTurn(ctx, s.ID, &snap); err != nil {
		log.Printf("Сессия %s: не удалось сохранить промежуточный статус хода %d: %v", s.ID, turnIndex, err)
	}
	return snap, false, nil
}

// commitEvaluation фиксирует исход оценки
func (e *Engine) commitEvaluation(ctx context.Context, s *Session, g *guard, turnIndex int, result *EvaluationResult, eerr error) (Turn, error) {
	g.mu.Lock()
	t := &s.Turns[turnIndex]

	if s.Status != StatusActive || t.Status.Terminal() {
		e.failTurnLocked(t)
		snap := *t
		g.mu.Unlock()
		return snap, e.persistTurn(ctx, s.ID, &snap)
	}

	if eerr != nil {
		t.Status = TurnFailed
		t.FailReason = failReasonFor(eerr)
		t.UpdatedAt = time.Now().UTC()
		snap := *t
		g.mu.Unlock()
		metrics.TurnFailed()
		log.Printf("Сессия %s: оценка хода %d не удалась: %s", s.ID, turnIndex, snap.FailReason)
		return snap, e.persistTurn(ctx, s.ID, &snap)
	}

	// Результат оценки неизменяем после присвоения
	if t.Result == nil {
		t.Result = result
	}
	t.Status = TurnScored
	t.UpdatedAt = time.Now().UTC()
	snap := *t
	g.mu.Unlock()

	metrics.TurnScored()
	return snap, e.persistTurn(ctx, s.ID, &snap)
}

// failTurnLocked переводит не-терминальный ход в failed с причиной aborted.
// Предусловие: mu захвачен.
func (e *Engine) failTurnLocked(t *Turn) {
	if t.Status.Terminal() {
		return
	}
	t.Status = TurnFailed
	t.FailReason = FailReasonAborted
	t.UpdatedAt = time.Now().UTC()
	metrics.TurnFailed()
}

// Abort прерывает активную сессию с указанием причины. Не-терминальный ход
// переводится в failed, чтобы после загрузки из хранилища сессия не содержала
// ходов в промежуточных статусах. Для уже терминальной сессии — no-op.
func (e *Engine) Abort(ctx context.Context, s *Session, reason string) error {
	g := e.guardFor(s.ID)
	g.mu.Lock()
	if s.Status.Terminal() {
		g.mu.Unlock()
		return nil
	}

	now := time.Now().UTC()
	s.Status = StatusAborted
	s.AbortReason = reason
	s.UpdatedAt = now

	var turnSnap *Turn
	if t := s.ActiveTurn(); t != nil {
		e.failTurnLocked(t)
		snap := *t
		turnSnap = &snap
	}
	sessSnap := *s
	g.mu.Unlock()

	if turnSnap != nil {
		if err := e.persistTurn(ctx, s.ID, turnSnap); err != nil {
			return err
		}
	}
	if err := e.persistSession(ctx, &sessSnap); err != nil {
		return err
	}

	metrics.SessionAborted()
	log.Printf("Сессия %s прервана: %s", s.ID, reason)
	return nil
}

// FinalizeScore вычисляет итоговый балл завершенной сессии:
// среднее арифметическое оцененных ходов, failed исключаются.
// Детерминирован и воспроизводим по сохраненным ходам.
func (e *Engine) FinalizeScore(s *Session) (float64, error) {
	if s.Status != StatusCompleted {
		return 0, fmt.Errorf("%w: статус %s", ErrSessionNotCompleted, s.Status)
	}
	score, ok := ComputeSummaryScore(s.Turns)
	if !ok {
		return 0, ErrNoScoredTurns
	}
	return score, nil
}

// FinalizeScoreFromStore пересчитывает итоговый балл по данным хранилища
func (e *Engine) FinalizeScoreFromStore(ctx context.Context, sessionID string) (float64, error) {
	s, err := e.store.LoadSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return e.FinalizeScore(s)
}

// ComputeSummaryScore возвращает среднее по оцененным ходам.
// ok=false, если оцененных ходов нет.
func ComputeSummaryScore(turns []Turn) (float64, bool) {
	var sum float64
	var count int
	for i := range turns {
		if turns[i].Status == TurnScored && turns[i].Result != nil {
			sum += turns[i].Result.Score
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// persistSession сохраняет заголовок сессии с ограниченным экспоненциальным
// повтором. После исчерпания попыток ошибка возвращается вызывающему,
// состояние в памяти не теряется.
func (e *Engine) persistSession(ctx context.Context, s *Session) error {
	op := func() error { return e.store.SaveSession(ctx, s) }
	if err := backoff.Retry(op, e.newBackOff(ctx)); err != nil {
		return fmt.Errorf("ошибка сохранения сессии %s: %w", s.ID, err)
	}
	return nil
}

// persistTurn сохраняет ход с той же политикой повторов
func (e *Engine) persistTurn(ctx context.Context, sessionID string, t *Turn) error {
	op := func() error { return e.store.SaveTurn(ctx, sessionID, t) }
	if err := backoff.Retry(op, e.newBackOff(ctx)); err != nil {
		return fmt.Errorf("ошибка сохранения хода %d сессии %s: %w", t.Index, sessionID, err)
	}
	return nil
}

func (e *Engine) newBackOff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.retry.InitialInterval
	bo.MaxElapsedTime = 0
	capped := backoff.WithMaxRetries(bo, uint64(e.retry.MaxAttempts-1))
	return backoff.WithContext(capped, ctx)
}
