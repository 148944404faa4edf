package predictor

import (
	"context"
	"log"

	"evalia-interview-bot/internal/api"
	"evalia-interview-bot/internal/config"
	"evalia-interview-bot/internal/metrics"
	"evalia-interview-bot/internal/prompts"
)

// ChatBackend классифицирует описание вакансии через chat completions API.
// При сбое основной модели пробует резервную.
type ChatBackend struct {
	primary  *api.Client
	fallback *api.Client
	catalog  *config.Catalog
}

func NewChatBackend(primary, fallback *api.Client, catalog *config.Catalog) *ChatBackend {
	return &ChatBackend{
		primary:  primary,
		fallback: fallback,
		catalog:  catalog,
	}
}

// Classify возвращает идентификатор домена каталога
func (b *ChatBackend) Classify(ctx context.Context, text string) (string, error) {
	prompt := prompts.BuildDomainPrompt(text, b.catalog.Domains)
	messages := []api.Message{
		{Role: "user", Content: prompt},
	}

	content, err := b.primary.Chat(ctx, messages)
	if err != nil && b.fallback != nil {
		log.Printf("Предиктор: основная модель недоступна, пробуем резервную: %v", err)
		content, err = b.fallback.Chat(ctx, messages)
	}
	metrics.AdapterCall("classify", err == nil)
	if err != nil {
		return "", &ClassificationError{Reason: "backend", Err: err}
	}

	return normalizeID(content), nil
}
