// Package predictor определяет домен интервью по описанию вакансии.
// Классификация best-effort: сбой никогда не блокирует старт интервью,
// в худшем случае возвращается домен по умолчанию.
package predictor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"evalia-interview-bot/internal/config"
)

// ClassificationError — сбой классификации описания вакансии
type ClassificationError struct {
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ошибка классификации (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ошибка классификации (%s)", e.Reason)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// Backend классифицирует текст и возвращает идентификатор домена каталога
type Backend interface {
	Classify(ctx context.Context, text string) (string, error)
}

// Service — предиктор домена: внешний бэкенд, затем локальная эвристика
// по ключевым словам, затем домен по умолчанию
type Service struct {
	backend Backend
	catalog *config.Catalog
}

func New(backend Backend, catalog *config.Catalog) *Service {
	return &Service{
		backend: backend,
		catalog: catalog,
	}
}

// Predict возвращает домен каталога для описания вакансии.
// Никогда не возвращает ошибку: любой сбой деградирует до эвристики
// или домена по умолчанию.
func (s *Service) Predict(ctx context.Context, jobDescription string) config.Domain {
	if s.backend != nil {
		id, err := s.backend.Classify(ctx, jobDescription)
		if err == nil {
			if dom, ok := s.catalog.DomainByID(normalizeID(id)); ok {
				return dom
			}
			log.Printf("Предиктор: бэкенд вернул неизвестный домен %q, переходим к эвристике", id)
		} else {
			log.Printf("Предиктор: бэкенд недоступен, переходим к эвристике: %v", err)
		}
	}

	if dom, ok := s.predictByKeywords(jobDescription); ok {
		return dom
	}

	return s.catalog.Default()
}

// predictByKeywords — локальная эвристика: домен с наибольшим числом
// совпадений ключевых слов. При равенстве побеждает порядок каталога.
func (s *Service) predictByKeywords(jobDescription string) (config.Domain, bool) {
	text := strings.ToLower(jobDescription)

	var best config.Domain
	bestHits := 0
	for _, dom := range s.catalog.Domains {
		hits := 0
		for _, keyword := range dom.Keywords {
			if strings.Contains(text, strings.ToLower(keyword)) {
				hits++
			}
		}
		if hits > bestHits {
			best = dom
			bestHits = hits
		}
	}

	return best, bestHits > 0
}

func normalizeID(id string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(id), `"'.`))
}

// ValidateJobDescription проверяет, что текст похож на описание вакансии.
// Используется презентационным слоем до запуска сессии.
func ValidateJobDescription(text string) error {
	trimmed := strings.TrimSpace(text)

	if trimmed == "" {
		return fmt.Errorf("описание вакансии не может быть пустым")
	}

	if len(strings.Fields(trimmed)) < 5 {
		return fmt.Errorf("описание вакансии слишком короткое (минимум 5 слов)")
	}

	if len(trimmed) < 30 {
		return fmt.Errorf("описание вакансии слишком короткое (минимум 30 символов)")
	}

	hasLetter := false
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return fmt.Errorf("описание вакансии должно содержать осмысленный текст, а не только цифры и символы")
	}

	return nil
}
