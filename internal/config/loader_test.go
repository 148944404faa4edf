package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validCatalogYAML = `
catalog_config:
  default_domain: "general"

domains:
  - id: "general"
    title: "Общие вопросы"
    keywords: ["software"]
    rubric: "technical"
    questions:
      - id: "gen-1"
        text: "Расскажите о себе"
  - id: "backend"
    title: "Backend разработка"
    keywords: ["backend", "api"]
    rubric: "technical"
    questions:
      - id: "be-1"
        text: "Что такое идемпотентность?"
      - id: "be-2"
        text: "Как устроены транзакции?"
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("не удалось записать файл: %v", err)
	}
	return path
}

func TestLoadValidCatalog(t *testing.T) {
	catalog, err := Load(writeCatalog(t, validCatalogYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if catalog.GetTotalDomains() != 2 {
		t.Errorf("ожидалось 2 домена, получено %d", catalog.GetTotalDomains())
	}

	backend, ok := catalog.DomainByID("backend")
	if !ok {
		t.Fatal("домен backend не найден")
	}
	if len(backend.Questions) != 2 {
		t.Errorf("ожидалось 2 вопроса, получено %d", len(backend.Questions))
	}
	if backend.Questions[0].ID != "be-1" {
		t.Errorf("порядок вопросов нарушен: %s", backend.Questions[0].ID)
	}

	if catalog.Default().ID != "general" {
		t.Errorf("домен по умолчанию: %s", catalog.Default().ID)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "нет.yaml"))
	if err == nil {
		t.Fatal("ожидалась ошибка для отсутствующего файла")
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{
			name: "default_domain отсутствует в каталоге",
			content: `
catalog_config:
  default_domain: "нет-такого"
domains:
  - id: "general"
    title: "Общие"
    rubric: "technical"
    questions:
      - id: "q1"
        text: "Вопрос"
`,
		},
		{
			name: "дубликат id домена",
			content: `
catalog_config:
  default_domain: "general"
domains:
  - id: "general"
    title: "Общие"
    rubric: "technical"
    questions:
      - id: "q1"
        text: "Вопрос"
  - id: "general"
    title: "Копия"
    rubric: "technical"
    questions:
      - id: "q2"
        text: "Вопрос"
`,
		},
		{
			name: "домен без вопросов",
			content: `
catalog_config:
  default_domain: "general"
domains:
  - id: "general"
    title: "Общие"
    rubric: "technical"
    questions: []
`,
		},
		{
			name: "вопрос без текста",
			content: `
catalog_config:
  default_domain: "general"
domains:
  - id: "general"
    title: "Общие"
    rubric: "technical"
    questions:
      - id: "q1"
        text: ""
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeCatalog(t, tc.content)); err == nil {
				t.Error("ожидалась ошибка валидации")
			}
		})
	}
}

func TestLoadAppConfigDefaults(t *testing.T) {
	cfg := LoadAppConfig()

	if cfg.OpenAI.Model == "" {
		t.Error("модель OpenAI по умолчанию не задана")
	}
	if cfg.Transcribe.Model != "whisper-1" {
		t.Errorf("модель транскрипции по умолчанию: %s", cfg.Transcribe.Model)
	}
	if cfg.Retry.MaxAttempts <= 0 {
		t.Errorf("количество попыток должно быть положительным: %d", cfg.Retry.MaxAttempts)
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := &AppConfig{
		Evaluation: EvaluationConfig{Backend: "openai"},
		Retry:      RetryConfig{MaxAttempts: 3},
	}

	if err := cfg.ValidateConfig(); err == nil {
		t.Error("ожидалась ошибка без токена Telegram")
	}

	cfg.Telegram.Token = "token"
	if err := cfg.ValidateConfig(); err == nil {
		t.Error("ожидалась ошибка без ключа OpenAI")
	}

	cfg.OpenAI.APIKey = "key"
	if err := cfg.ValidateConfig(); err != nil {
		t.Errorf("конфигурация должна быть валидной: %v", err)
	}

	cfg.Evaluation.Backend = "неизвестный"
	if err := cfg.ValidateConfig(); err == nil {
		t.Error("ожидалась ошибка для неизвестного бэкенда")
	}
}
