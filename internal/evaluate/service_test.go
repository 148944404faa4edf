package evaluate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"evalia-interview-bot/internal/api"
	"evalia-interview-bot/internal/rubric"
)

func testRubric() rubric.Rubric {
	return rubric.Rubric{
		ID:    "technical",
		Title: "Техническое интервью",
		Dimensions: []rubric.Dimension{
			{Name: "correctness", Weight: 0.6, Description: "Точность"},
			{Name: "clarity", Weight: 0.4, Description: "Ясность"},
		},
	}
}

// chatServer поднимает фейковый chat completions API, отвечающий content
func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("неожиданный путь: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("неожиданный заголовок авторизации: %s", auth)
		}

		var req api.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("битое тело запроса: %v", err)
		}

		w.WriteHeader(status)
		resp := api.Response{
			Choices: []api.Choice{
				{Message: api.Message{Role: "assistant", Content: content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestEvaluateSuccess(t *testing.T) {
	payload := `{
		"score": 82,
		"feedback": "Сильный ответ с хорошими примерами",
		"dimensions": {"correctness": 85, "clarity": 78},
		"improvement_tips": ["Добавьте пример из практики"],
		"knowledge_gaps": ["Изоляция транзакций"]
	}`
	server := chatServer(t, http.StatusOK, payload)
	defer server.Close()

	svc := New(api.NewClient("test-key", server.URL, "gpt-4o"))
	result, err := svc.Evaluate(context.Background(), "Что такое идемпотентность?", "Это свойство операции...", testRubric())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if result.Score != 82 {
		t.Errorf("балл: %f", result.Score)
	}
	if result.Feedback == "" {
		t.Error("отзыв пуст")
	}
	if result.Dimensions["correctness"] != 85 {
		t.Errorf("измерения: %+v", result.Dimensions)
	}
	if len(result.ImprovementTips) != 1 || len(result.KnowledgeGaps) != 1 {
		t.Errorf("советы и пробелы: %+v", result)
	}
}

func TestEvaluateMarkdownWrappedJSON(t *testing.T) {
	payload := "```json\n{\"score\": 55, \"feedback\": \"Поверхностный ответ\"}\n```"
	server := chatServer(t, http.StatusOK, payload)
	defer server.Close()

	svc := New(api.NewClient("test-key", server.URL, "gpt-4o"))
	result, err := svc.Evaluate(context.Background(), "Вопрос", "Ответ", testRubric())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Score != 55 {
		t.Errorf("балл: %f", result.Score)
	}
}

func TestEvaluateClampsScore(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    float64
	}{
		{"балл выше максимума", `{"score": 150, "feedback": "x", "dimensions": {"correctness": 120}}`, 100},
		{"отрицательный балл", `{"score": -10, "feedback": "x"}`, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := chatServer(t, http.StatusOK, tc.payload)
			defer server.Close()

			svc := New(api.NewClient("test-key", server.URL, "gpt-4o"))
			result, err := svc.Evaluate(context.Background(), "Вопрос", "Ответ", testRubric())
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if result.Score != tc.want {
				t.Errorf("ожидался балл %f, получен %f", tc.want, result.Score)
			}
			for name, v := range result.Dimensions {
				if v < 0 || v > 100 {
					t.Errorf("измерение %s вне диапазона: %f", name, v)
				}
			}
		})
	}
}

func TestEvaluateBackendError(t *testing.T) {
	server := chatServer(t, http.StatusInternalServerError, "")
	defer server.Close()

	svc := New(api.NewClient("test-key", server.URL, "gpt-4o"))
	_, err := svc.Evaluate(context.Background(), "Вопрос", "Ответ", testRubric())
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("ожидалась EvaluationError, получено: %T", err)
	}
	if evalErr.Reason != "backend" {
		t.Errorf("причина: %s", evalErr.Reason)
	}
}

func TestEvaluateUnparsableResponse(t *testing.T) {
	server := chatServer(t, http.StatusOK, "к сожалению, я не могу оценить этот ответ")
	defer server.Close()

	svc := New(api.NewClient("test-key", server.URL, "gpt-4o"))
	_, err := svc.Evaluate(context.Background(), "Вопрос", "Ответ", testRubric())
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}
	if !strings.Contains(err.Error(), "response_parse") {
		t.Errorf("ожидалась причина response_parse: %v", err)
	}
}
