// Package report сохраняет итоги завершенных интервью в JSON файлы
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"evalia-interview-bot/internal/session"
)

// Report представляет итог одной сессии интервью
type Report struct {
	SessionID    string       `json:"session_id"`
	CandidateID  string       `json:"candidate_id"`
	Mode         string       `json:"mode"`
	Domain       string       `json:"domain"`
	Status       string       `json:"status"`
	SummaryScore float64      `json:"summary_score"`
	Turns        []TurnReport `json:"turns"`
	Timestamp    string       `json:"timestamp"`
}

// TurnReport представляет итог одного хода
type TurnReport struct {
	Index      int                       `json:"index"`
	Question   string                    `json:"question"`
	Transcript string                    `json:"transcript,omitempty"`
	Status     string                    `json:"status"`
	FailReason string                    `json:"fail_reason,omitempty"`
	Result     *session.EvaluationResult `json:"result,omitempty"`
}

// Service сохраняет и загружает отчеты в директории reports
type Service struct {
	dir string
}

func NewService(dir string) *Service {
	if dir == "" {
		dir = "results"
	}
	return &Service{dir: dir}
}

// Build собирает отчет по сессии
func Build(s *session.Session) *Report {
	score, _ := session.ComputeSummaryScore(s.Turns)

	turns := make([]TurnReport, 0, len(s.Turns))
	for i := range s.Turns {
		t := &s.Turns[i]
		turns = append(turns, TurnReport{
			Index:      t.Index,
			Question:   t.Question,
			Transcript: t.Transcript,
			Status:     string(t.Status),
			FailReason: t.FailReason,
			Result:     t.Result,
		})
	}

	return &Report{
		SessionID:    s.ID,
		CandidateID:  s.CandidateID,
		Mode:         string(s.Mode),
		Domain:       s.Domain,
		Status:       string(s.Status),
		SummaryScore: score,
		Turns:        turns,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}

// Save сохраняет отчет в JSON файл и возвращает путь к нему
func (s *Service) Save(r *Report) (string, error) {
	// Создаем директорию если её нет
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("ошибка создания директории %s: %w", s.dir, err)
	}

	filename := fmt.Sprintf("interview_%s.json", r.SessionID)
	path := filepath.Join(s.dir, filename)

	// Сериализуем отчет в JSON с отступами
	jsonData, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации отчета: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("ошибка записи файла %s: %w", path, err)
	}

	return path, nil
}

// Load загружает отчет по идентификатору сессии
func (s *Service) Load(sessionID string) (*Report, error) {
	filename := fmt.Sprintf("interview_%s.json", sessionID)
	path := filepath.Join(s.dir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("ошибка десериализации JSON: %w", err)
	}

	return &report, nil
}

// List возвращает идентификаторы сессий всех сохраненных отчетов
func (s *Service) List() ([]string, error) {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", s.dir, err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		name := entry.Name()
		if len(name) > 10 && name[:10] == "interview_" {
			ids = append(ids, name[10:len(name)-5])
		}
	}

	return ids, nil
}
