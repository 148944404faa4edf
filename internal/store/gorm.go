package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqliteDriver "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"evalia-interview-bot/internal/session"
)

// GormStore — долговременное хранилище прогресса поверх SQLite
type GormStore struct {
	db *gorm.DB
}

// NewGormStore открывает базу по DSN и выполняет миграцию схемы
func NewGormStore(dsn string) (*GormStore, error) {
	if err := ensureSQLiteDirectory(dsn); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqliteDriver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы %s: %w", dsn, err)
	}

	store := &GormStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *GormStore) migrate() error {
	if err := s.db.AutoMigrate(&sessionRow{}, &turnRow{}); err != nil {
		return fmt.Errorf("ошибка миграции схемы: %w", err)
	}
	return nil
}

func ensureSQLiteDirectory(dsn string) error {
	dir := filepath.Dir(dsn)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ошибка создания директории %s: %w", dir, err)
	}
	return nil
}

type sessionRow struct {
	ID          string    `gorm:"primaryKey;size:64"`
	CandidateID string    `gorm:"size:191;index:idx_sessions_candidate_created,priority:1"`
	Mode        string    `gorm:"size:32"`
	Domain      string    `gorm:"size:64"`
	Status      string    `gorm:"size:32;not null"`
	AbortReason string    `gorm:"size:191"`
	CreatedAt   time.Time `gorm:"not null;index:idx_sessions_candidate_created,priority:2"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (sessionRow) TableName() string {
	return "sessions"
}

type turnRow struct {
	SessionID   string    `gorm:"primaryKey;size:64"`
	TurnIndex   int       `gorm:"primaryKey"`
	QuestionID  string    `gorm:"size:64"`
	Question    string    `gorm:"type:text"`
	AudioHandle string    `gorm:"size:512"`
	Transcript  string    `gorm:"type:text"`
	Status      string    `gorm:"size:32;not null"`
	FailReason  string    `gorm:"size:191"`
	ResultJSON  string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (turnRow) TableName() string {
	return "turns"
}

func sessionRowFromHeader(s *session.Session) sessionRow {
	return sessionRow{
		ID:          s.ID,
		CandidateID: s.CandidateID,
		Mode:        string(s.Mode),
		Domain:      s.Domain,
		Status:      string(s.Status),
		AbortReason: s.AbortReason,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (r sessionRow) toHeader() session.Session {
	return session.Session{
		ID:          r.ID,
		CandidateID: r.CandidateID,
		Mode:        session.Mode(r.Mode),
		Domain:      r.Domain,
		Status:      session.Status(r.Status),
		AbortReason: r.AbortReason,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func turnRowFromTurn(sessionID string, t *session.Turn) (turnRow, error) {
	row := turnRow{
		SessionID:   sessionID,
		TurnIndex:   t.Index,
		QuestionID:  t.QuestionID,
		Question:    t.Question,
		AudioHandle: t.AudioHandle,
		Transcript:  t.Transcript,
		Status:      string(t.Status),
		FailReason:  t.FailReason,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Result != nil {
		data, err := json.Marshal(t.Result)
		if err != nil {
			return turnRow{}, fmt.Errorf("ошибка сериализации результата: %w", err)
		}
		row.ResultJSON = string(data)
	}
	return row, nil
}

func (r turnRow) toTurn() session.Turn {
	t := session.Turn{
		Index:       r.TurnIndex,
		QuestionID:  r.QuestionID,
		Question:    r.Question,
		AudioHandle: r.AudioHandle,
		Transcript:  r.Transcript,
		Status:      session.TurnStatus(r.Status),
		FailReason:  r.FailReason,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.ResultJSON != "" {
		var result session.EvaluationResult
		if err := json.Unmarshal([]byte(r.ResultJSON), &result); err == nil {
			t.Result = &result
		}
	}
	normalizeTurn(&t)
	return t
}

// SaveSession — идемпотентный upsert заголовка сессии по session_id
func (s *GormStore) SaveSession(ctx context.Context, sess *session.Session) error {
	row := sessionRowFromHeader(sess)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return &StorageError{Op: "save_session", Err: err}
	}
	return nil
}

// SaveTurn — идемпотентный upsert хода по (session_id, turn_index)
func (s *GormStore) SaveTurn(ctx context.Context, sessionID string, t *session.Turn) error {
	row, err := turnRowFromTurn(sessionID, t)
	if err != nil {
		return &StorageError{Op: "save_turn", Err: err}
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return &StorageError{Op: "save_turn", Err: err}
	}
	return nil
}

// LoadSession возвращает сессию со всеми ходами в порядке индексов
func (s *GormStore) LoadSession(ctx context.Context, sessionID string) (*session.Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).
		Where("id = ?", sessionID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "load_session", Err: err}
	}

	var turnRows []turnRow
	err = s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("turn_index asc").
		Find(&turnRows).Error
	if err != nil {
		return nil, &StorageError{Op: "load_session", Err: err}
	}

	sess := row.toHeader()
	for _, tr := range turnRows {
		sess.Turns = append(sess.Turns, tr.toTurn())
	}
	return &sess, nil
}

// ListSessions возвращает сводки сессий кандидата по возрастанию времени создания
func (s *GormStore) ListSessions(ctx context.Context, candidateID string) ([]session.Summary, error) {
	var rows []sessionRow
	err := s.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, &StorageError{Op: "list_sessions", Err: err}
	}

	var summaries []session.Summary
	for _, row := range rows {
		var turnRows []turnRow
		err = s.db.WithContext(ctx).
			Where("session_id = ?", row.ID).
			Order("turn_index asc").
			Find(&turnRows).Error
		if err != nil {
			return nil, &StorageError{Op: "list_sessions", Err: err}
		}

		turns := make([]session.Turn, 0, len(turnRows))
		scored := 0
		for _, tr := range turnRows {
			t := tr.toTurn()
			if t.Status == session.TurnScored {
				scored++
			}
			turns = append(turns, t)
		}
		score, _ := session.ComputeSummaryScore(turns)

		summaries = append(summaries, session.Summary{
			SessionID:    row.ID,
			CandidateID:  row.CandidateID,
			Mode:         session.Mode(row.Mode),
			Domain:       row.Domain,
			Status:       session.Status(row.Status),
			TurnCount:    len(turns),
			ScoredCount:  scored,
			SummaryScore: score,
			CreatedAt:    row.CreatedAt,
		})
	}
	return summaries, nil
}
