package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evalia-interview-bot/internal/api"
	"evalia-interview-bot/internal/config"
	"evalia-interview-bot/internal/evaluate"
	"evalia-interview-bot/internal/predictor"
	"evalia-interview-bot/internal/report"
	"evalia-interview-bot/internal/rubric"
	"evalia-interview-bot/internal/session"
	"evalia-interview-bot/internal/store"
	"evalia-interview-bot/internal/telegram"
	"evalia-interview-bot/internal/transcribe"
)

func main() {
	fmt.Println("🚀 Запуск Interview Bot...")

	// Загружаем переменные окружения
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	cfg := config.LoadAppConfig()
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}

	// Загружаем каталог доменов и рубрики
	catalog, err := config.Load("config/catalog.yaml")
	if err != nil {
		log.Fatalf("Ошибка загрузки каталога доменов: %v", err)
	}

	rubricData, err := os.ReadFile("config/rubrics.yaml")
	if err != nil {
		log.Fatalf("Ошибка чтения файла рубрик: %v", err)
	}
	rubrics, err := rubric.ParseYAMLSchema(rubricData)
	if err != nil {
		log.Fatalf("Ошибка загрузки рубрик: %v", err)
	}

	// Инициализируем сервисы
	fmt.Println("🔧 Инициализация сервисов...")

	// Хранилище прогресса
	var progressStore session.Store
	switch cfg.Storage.Driver {
	case "sqlite":
		gs, err := store.NewGormStore(cfg.Storage.DSN)
		if err != nil {
			log.Fatalf("Ошибка инициализации хранилища: %v", err)
		}
		progressStore = gs
		fmt.Printf("✅ Хранилище SQLite: %s\n", cfg.Storage.DSN)
	case "memory":
		progressStore = store.NewMemoryStore()
		fmt.Println("⚠️ Хранилище in-memory: прогресс не переживет перезапуск")
	default:
		log.Fatalf("Неизвестный драйвер хранилища: %q", cfg.Storage.Driver)
	}

	// Бэкенд оценки ответов: OpenAI или Groq
	var evalClient *api.Client
	switch cfg.Evaluation.Backend {
	case "groq":
		evalClient = api.NewClient(cfg.Groq.APIKey, api.GroqBaseURL, cfg.Groq.Model)
	default:
		evalClient = api.NewClientWithConfig(cfg.OpenAI.APIKey, api.OpenAIBaseURL, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature)
	}
	evaluator := evaluate.New(evalClient)
	fmt.Printf("✅ Оценка ответов: %s (%s)\n", cfg.Evaluation.Backend, evalClient.Model())

	// Транскрипция через Whisper API
	transcriber := transcribe.NewWhisper(cfg.OpenAI.APIKey, cfg.Transcribe.Model)
	fmt.Printf("✅ Транскрипция: %s\n", cfg.Transcribe.Model)

	// Предиктор домена: Groq с резервной моделью, если ключ задан,
	// иначе локальная эвристика по ключевым словам
	var backend predictor.Backend
	if cfg.Groq.APIKey != "" {
		primary := api.NewClient(cfg.Groq.APIKey, api.GroqBaseURL, cfg.Groq.Model)
		fallback := api.NewClient(cfg.Groq.APIKey, api.GroqBaseURL, cfg.Groq.FallbackModel)
		backend = predictor.NewChatBackend(primary, fallback, catalog)
		fmt.Println("✅ Предиктор домена: Groq")
	} else {
		fmt.Println("⚠️ GROQ_API_KEY не задан, предиктор работает по ключевым словам")
	}
	domainPredictor := predictor.New(backend, catalog)

	// Движок сессий
	controller := session.NewController(catalog, rubrics, transcriber, evaluator, cfg.Transcribe.Timeout, cfg.Evaluation.Timeout)
	engine := session.NewEngine(catalog, domainPredictor, progressStore, controller, cfg.Retry)
	fmt.Println("✅ Движок интервью инициализирован")

	// Отчеты по завершенным интервью
	reports := report.NewService("results")

	// Метрики Prometheus
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		fmt.Printf("📈 Метрики доступны на %s/metrics\n", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.Printf("Ошибка сервера метрик: %v", err)
		}
	}()

	// Telegram бот
	bot := telegram.New(cfg.Telegram.Token)
	handler := telegram.NewHandler(bot, catalog, engine, reports)
	fmt.Println("✅ Telegram бот инициализирован")

	// Выводим информацию о конфигурации
	fmt.Println("\n📋 Конфигурация:")
	fmt.Printf("• Доменов в каталоге: %d\n", catalog.GetTotalDomains())
	fmt.Printf("• Домен по умолчанию: %s\n", catalog.CatalogConfig.DefaultDomain)
	fmt.Printf("• Рубрик: %d\n", len(rubrics))

	fmt.Println("\n🤖 Telegram бот запущен!")
	fmt.Println("⏳ Ожидание сообщений...")
	fmt.Println("📱 Найдите бота в Telegram и отправьте /start")

	// Запускаем polling
	if err := bot.StartPolling(handler.HandleUpdate); err != nil {
		log.Fatalf("Ошибка запуска бота: %v", err)
	}
}
