package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"evalia-interview-bot/internal/config"
	"evalia-interview-bot/internal/predictor"
	"evalia-interview-bot/internal/report"
	"evalia-interview-bot/internal/session"
)

type RateLimiter struct {
	requests map[int64][]time.Time
	mutex    sync.RWMutex
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[int64][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (rl *RateLimiter) IsAllowed(userID int64) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()

	if requests, exists := rl.requests[userID]; exists {
		var valid []time.Time
		for _, t := range requests {
			if now.Sub(t) < rl.window {
				valid = append(valid, t)
			}
		}
		rl.requests[userID] = valid
	}

	if len(rl.requests[userID]) >= rl.limit {
		return false
	}

	rl.requests[userID] = append(rl.requests[userID], now)
	return true
}

type Handler struct {
	bot           *Bot
	catalog       *config.Catalog
	engine        *session.Engine
	reports       *report.Service
	sessions      map[int64]*chatSession
	sessionsMutex sync.RWMutex
	rateLimiter   *RateLimiter
}

func NewHandler(bot *Bot, catalog *config.Catalog, engine *session.Engine, reports *report.Service) *Handler {
	h := &Handler{
		bot:         bot,
		catalog:     catalog,
		engine:      engine,
		reports:     reports,
		sessions:    make(map[int64]*chatSession),
		rateLimiter: NewRateLimiter(10, time.Minute),
	}
	h.startSessionCleanup()
	return h
}

func (h *Handler) startSessionCleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for range ticker.C {
			h.cleanupInactiveSessions()
		}
	}()
}

func (h *Handler) cleanupInactiveSessions() {
	h.sessionsMutex.Lock()
	defer h.sessionsMutex.Unlock()

	cutoff := time.Now().Add(-24 * time.Hour)
	for uid, sess := range h.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(h.sessions, uid)
		}
	}
}

// candidateID — идентификатор кандидата в хранилище прогресса
func candidateID(userID int64) string {
	return fmt.Sprintf("tg-%d", userID)
}

func (h *Handler) HandleUpdate(update Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	if !h.rateLimiter.IsAllowed(userID) {
		h.bot.SendMessage(chatID, "⏳ Слишком много сообщений. Пожалуйста, подождите минуту.")
		return
	}

	chat := h.getOrCreateSession(userID)
	chat.LastActivity = time.Now()

	if update.Message.Voice != nil {
		h.handleVoice(chatID, update.Message.Voice, chat)
		return
	}

	if strings.HasPrefix(text, "/") {
		h.handleCommand(chatID, text, chat)
		return
	}
	h.handleText(chatID, text, chat)
}

// handleCommand обрабатывает команды бота
func (h *Handler) handleCommand(chatID int64, command string, chat *chatSession) {
	switch strings.Fields(command)[0] {
	case "/start":
		h.handleStartCommand(chatID, chat, session.ModeTechnical)
	case "/hr":
		h.handleStartCommand(chatID, chat, session.ModeHR)
	case "/help":
		h.handleHelpCommand(chatID)
	case "/status":
		h.handleStatusCommand(chatID, chat)
	case "/stop":
		h.handleStopCommand(chatID, chat)
	case "/history":
		h.handleHistoryCommand(chatID, chat)
	case "/results":
		h.handleResultsCommand(chatID, chat)
	default:
		h.bot.SendMessage(chatID, "Неизвестная команда. Используйте /help для получения списка команд.")
	}
}

// handleStartCommand начинает прием описания вакансии
func (h *Handler) handleStartCommand(chatID int64, chat *chatSession, mode session.Mode) {
	if chat.State == StateInterviewing {
		h.bot.SendMessage(chatID, "У вас уже идет интервью. Используйте /status для проверки прогресса или /stop для остановки.")
		return
	}

	chat.State = StateAwaitingJD
	chat.Mode = mode
	chat.Interview = nil

	modeTitle := "техническое"
	if mode == session.ModeHR {
		modeTitle = "HR"
	}

	h.bot.SendFormattedMessage(chatID, `🎯 *Начинаем %s интервью!*

Пришлите текстом описание вакансии, на которую вы собеседуетесь.
По нему я подберу домен и вопросы.

_Минимум 5 слов и 30 символов._`, modeTitle)
}

// handleHelpCommand обрабатывает команду /help
func (h *Handler) handleHelpCommand(chatID int64) {
	helpText := `🤖 *Бот-тренажер устных интервью*

*Команды:*
/start - Начать техническое интервью
/hr - Начать HR интервью
/status - Прогресс текущего интервью
/stop - Остановить текущее интервью
/history - История ваших интервью
/results - Итог последнего завершенного интервью
/help - Показать это сообщение

*Как это работает:*
1. Используйте /start и пришлите описание вакансии
2. Я определю домен и начну задавать вопросы
3. Отвечайте *голосовыми сообщениями*
4. Каждый ответ расшифровывается и оценивается по рубрике
5. После последнего вопроса вы получите итоговый балл

*Совет:* отвечайте развернуто, оценка учитывает полноту ответа!`

	h.bot.SendMessage(chatID, helpText)
}

// handleStatusCommand показывает статус интервью
func (h *Handler) handleStatusCommand(chatID int64, chat *chatSession) {
	switch chat.State {
	case StateIdle:
		h.bot.SendMessage(chatID, "Интервью не начато. Используйте /start для начала.")
	case StateAwaitingJD:
		h.bot.SendMessage(chatID, "Жду описание вакансии. Пришлите его текстом.")
	case StateInterviewing:
		s := chat.Interview
		total := h.totalQuestions(s.Domain)
		progress := fmt.Sprintf("📊 *Прогресс интервью*\n\n"+
			"🆔 ID: `%s`\n"+
			"📋 Домен: %s\n"+
			"❓ Вопрос: %d/%d\n"+
			"✅ Оценено ответов: %d",
			s.ID,
			h.domainTitle(s.Domain),
			len(s.Turns), total,
			s.ScoredCount())
		h.bot.SendMessage(chatID, progress)
	case StateCompleted:
		h.bot.SendFormattedMessage(chatID, "✅ Интервью завершено!\n🆔 ID: `%s`\n\n_Используйте /results для итогов или /start для нового интервью_", chat.Interview.ID)
	}
}

// handleStopCommand останавливает интервью
func (h *Handler) handleStopCommand(chatID int64, chat *chatSession) {
	if chat.State != StateInterviewing {
		chat.State = StateIdle
		h.bot.SendMessage(chatID, "Интервью не запущено.")
		return
	}

	if err := h.engine.Abort(context.Background(), chat.Interview, "user_requested"); err != nil {
		h.bot.SendMessage(chatID, "❌ Не удалось остановить интервью: "+err.Error())
		return
	}

	chat.State = StateIdle
	h.bot.SendMessage(chatID, "🛑 Интервью остановлено. Прогресс сохранен, используйте /history для просмотра.")
}

// handleHistoryCommand показывает историю интервью кандидата
func (h *Handler) handleHistoryCommand(chatID int64, chat *chatSession) {
	summaries, err := h.engine.History(context.Background(), candidateID(chat.UserID))
	if err != nil {
		h.bot.SendMessage(chatID, "❌ Не удалось загрузить историю: "+err.Error())
		return
	}
	if len(summaries) == 0 {
		h.bot.SendMessage(chatID, "История пуста. Используйте /start для первого интервью.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📚 *Ваши интервью:*\n")
	for _, s := range summaries {
		sb.WriteString(fmt.Sprintf("\n• `%s`\n  %s, %s — %s", s.SessionID, h.domainTitle(s.Domain), s.CreatedAt.Format("02.01.2006"), statusTitle(s.Status)))
		if s.ScoredCount > 0 {
			sb.WriteString(fmt.Sprintf(", балл %.1f", s.SummaryScore))
		}
	}
	h.bot.SendMessage(chatID, sb.String())
}

// handleResultsCommand показывает итог последнего завершенного интервью
func (h *Handler) handleResultsCommand(chatID int64, chat *chatSession) {
	if chat.Interview == nil || chat.Interview.Status != session.StatusCompleted {
		h.bot.SendMessage(chatID, "❌ Итоги доступны после завершения интервью. Используйте /history для прошлых сессий.")
		return
	}

	r, err := h.reports.Load(chat.Interview.ID)
	if err != nil {
		h.bot.SendMessage(chatID, "❌ Отчет не найден: "+err.Error())
		return
	}

	h.sendReport(chatID, r)
}

// handleText обрабатывает текстовые сообщения по состоянию диалога
func (h *Handler) handleText(chatID int64, text string, chat *chatSession) {
	switch chat.State {
	case StateAwaitingJD:
		h.startInterview(chatID, text, chat)
	case StateInterviewing:
		h.bot.SendMessage(chatID, "🎤 Отвечайте голосовым сообщением — я оцениваю устные ответы.")
	default:
		h.bot.SendMessage(chatID, "Используйте /start для начала интервью или /help для помощи.")
	}
}

// startInterview запускает сессию по описанию вакансии
func (h *Handler) startInterview(chatID int64, jobDescription string, chat *chatSession) {
	if err := predictor.ValidateJobDescription(jobDescription); err != nil {
		h.bot.SendMessage(chatID, "❌ "+err.Error())
		return
	}

	h.bot.SendMessage(chatID, "🔍 Определяю домен по описанию вакансии...")

	ctx := context.Background()
	s, err := h.engine.StartSession(ctx, candidateID(chat.UserID), chat.Mode, jobDescription)
	if err != nil {
		h.bot.SendMessage(chatID, "❌ Не удалось начать интервью: "+err.Error())
		return
	}
	chat.Interview = s
	chat.State = StateInterviewing

	h.bot.SendFormattedMessage(chatID, `🎯 *Интервью начато!*

🆔 *ID:* `+"`%s`"+`
📋 *Домен:* %s
❓ *Вопросов:* %d

Отвечайте на каждый вопрос голосовым сообщением. Поехали! 🚀`,
		s.ID, h.domainTitle(s.Domain), h.totalQuestions(s.Domain))

	h.advance(chatID, chat)
}

// handleVoice обрабатывает голосовой ответ на текущий вопрос
func (h *Handler) handleVoice(chatID int64, voice *Voice, chat *chatSession) {
	if chat.State != StateInterviewing {
		h.bot.SendMessage(chatID, "Сейчас не время для ответов. Используйте /start для начала интервью.")
		return
	}

	s := chat.Interview
	cur := s.CurrentTurn()
	if cur == nil {
		h.bot.SendMessage(chatID, "Нет вопроса, ожидающего ответа. Используйте /status для проверки.")
		return
	}

	audioHandle, err := h.bot.GetFileURL(voice.FileID)
	if err != nil {
		h.bot.SendMessage(chatID, "❌ Не удалось получить голосовое сообщение: "+err.Error())
		return
	}

	h.bot.SendMessage(chatID, "🎧 Расшифровываю и оцениваю ваш ответ...")

	t, err := h.engine.SubmitAnswer(context.Background(), s, cur.Index, audioHandle)
	if err != nil {
		if errors.Is(err, session.ErrConcurrencyViolation) {
			h.bot.SendMessage(chatID, "⏳ Предыдущий ответ еще обрабатывается, подождите.")
			return
		}
		h.bot.SendMessage(chatID, "❌ Ошибка обработки ответа: "+err.Error())
		return
	}

	h.sendTurnFeedback(chatID, t)
	h.advance(chatID, chat)
}

// advance запрашивает у движка следующий вопрос или завершает интервью
func (h *Handler) advance(chatID int64, chat *chatSession) {
	s := chat.Interview
	t, err := h.engine.Advance(context.Background(), s)
	if err != nil {
		h.bot.SendMessage(chatID, "❌ Не удалось продолжить интервью: "+err.Error())
		return
	}
	if t != nil {
		h.bot.SendFormattedMessage(chatID, "❓ *Вопрос %d/%d:*\n\n%s", t.Index+1, h.totalQuestions(s.Domain), t.Question)
		return
	}

	// Банк вопросов исчерпан, сессия терминальна
	chat.State = StateCompleted
	if s.Status == session.StatusAborted {
		chat.State = StateIdle
		h.bot.SendMessage(chatID, "😔 Ни один ответ не удалось оценить, интервью прервано. Попробуйте еще раз: /start")
		return
	}

	h.completeInterview(chatID, chat)
}

// completeInterview подводит итог завершенной сессии
func (h *Handler) completeInterview(chatID int64, chat *chatSession) {
	s := chat.Interview

	score, err := h.engine.FinalizeScore(s)
	if err != nil {
		h.bot.SendMessage(chatID, "❌ Не удалось вычислить итоговый балл: "+err.Error())
		return
	}

	r := report.Build(s)
	path, err := h.reports.Save(r)
	if err != nil {
		h.bot.SendMessage(chatID, "⚠️ Итог посчитан, но отчет не сохранен: "+err.Error())
	}

	completionText := fmt.Sprintf(`🎉 *Интервью завершено!*

🆔 ID: `+"`%s`"+`
📋 Домен: %s
✅ Оценено ответов: %d/%d
🏆 *Итоговый балл: %.1f/100*

💾 Отчет: `+"`%s`"+`

_Используйте /results для подробностей или /start для нового интервью._`,
		s.ID, h.domainTitle(s.Domain), s.ScoredCount(), len(s.Turns), score, path)

	h.bot.SendMessage(chatID, completionText)
}

// sendTurnFeedback отправляет результат оценки одного ответа
func (h *Handler) sendTurnFeedback(chatID int64, t *session.Turn) {
	if t.Status == session.TurnFailed {
		h.bot.SendFormattedMessage(chatID, "⚠️ Ответ на вопрос %d не удалось оценить (%s). Двигаемся дальше.", t.Index+1, t.FailReason)
		return
	}
	if t.Result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📝 *Оценка ответа %d: %.1f/100*\n\n%s", t.Index+1, t.Result.Score, t.Result.Feedback))

	if len(t.Result.ImprovementTips) > 0 {
		sb.WriteString("\n\n💡 *Как улучшить:*")
		for _, tip := range t.Result.ImprovementTips {
			sb.WriteString("\n• " + tip)
		}
	}
	if len(t.Result.KnowledgeGaps) > 0 {
		sb.WriteString("\n\n📖 *Стоит подтянуть:*")
		for _, gap := range t.Result.KnowledgeGaps {
			sb.WriteString("\n• " + gap)
		}
	}

	h.bot.SendMessage(chatID, sb.String())
}

// sendReport отправляет сохраненный отчет
func (h *Handler) sendReport(chatID int64, r *report.Report) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏆 *Итог интервью `%s`*\n📋 Домен: %s\n⭐ Балл: %.1f/100\n", r.SessionID, h.domainTitle(r.Domain), r.SummaryScore))
	for _, t := range r.Turns {
		sb.WriteString(fmt.Sprintf("\n*%d.* %s\n", t.Index+1, t.Question))
		if t.Result != nil {
			sb.WriteString(fmt.Sprintf("   %.1f/100 — %s\n", t.Result.Score, t.Result.Feedback))
		} else {
			sb.WriteString(fmt.Sprintf("   не оценен (%s)\n", t.FailReason))
		}
	}
	h.bot.SendMessage(chatID, sb.String())
}

// Вспомогательные методы
func (h *Handler) getOrCreateSession(userID int64) *chatSession {
	h.sessionsMutex.Lock()
	defer h.sessionsMutex.Unlock()

	if chat, exists := h.sessions[userID]; exists {
		return chat
	}

	chat := &chatSession{
		UserID:       userID,
		State:        StateIdle,
		Mode:         session.ModeTechnical,
		LastActivity: time.Now(),
	}
	h.sessions[userID] = chat
	return chat
}

func (h *Handler) domainTitle(domainID string) string {
	if dom, ok := h.catalog.DomainByID(domainID); ok {
		return dom.Title
	}
	return domainID
}

func (h *Handler) totalQuestions(domainID string) int {
	if dom, ok := h.catalog.DomainByID(domainID); ok {
		return len(dom.Questions)
	}
	return 0
}

func statusTitle(status session.Status) string {
	switch status {
	case session.StatusPending:
		return "ожидает"
	case session.StatusActive:
		return "в процессе"
	case session.StatusCompleted:
		return "завершено"
	case session.StatusAborted:
		return "прервано"
	default:
		return string(status)
	}
}
