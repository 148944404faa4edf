// Package transcribe оборачивает внешний сервис распознавания речи.
// Ядро передает непрозрачный audio handle и получает текст ответа.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const transcriptionURL = "https://api.openai.com/v1/audio/transcriptions"

// TranscriptionError — сбой распознавания речи с причиной
type TranscriptionError struct {
	Reason string
	Err    error
}

func (e *TranscriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ошибка транскрипции (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ошибка транскрипции (%s)", e.Reason)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// WhisperService — транскрипция через Whisper API.
// Audio handle — это URL аудиофайла, который сервис скачивает и отправляет
// на распознавание.
type WhisperService struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

func NewWhisper(apiKey, model string) *WhisperService {
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperService{
		apiKey:   apiKey,
		model:    model,
		endpoint: transcriptionURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe скачивает аудио по handle и возвращает распознанный текст
func (s *WhisperService) Transcribe(ctx context.Context, audioHandle string) (string, error) {
	audio, err := s.fetchAudio(ctx, audioHandle)
	if err != nil {
		return "", &TranscriptionError{Reason: "audio_fetch", Err: err}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "answer.ogg")
	if err != nil {
		return "", &TranscriptionError{Reason: "request_build", Err: err}
	}
	if _, err := part.Write(audio); err != nil {
		return "", &TranscriptionError{Reason: "request_build", Err: err}
	}
	if err := writer.WriteField("model", s.model); err != nil {
		return "", &TranscriptionError{Reason: "request_build", Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", &TranscriptionError{Reason: "request_build", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &buf)
	if err != nil {
		return "", &TranscriptionError{Reason: "request_build", Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &TranscriptionError{Reason: "request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TranscriptionError{Reason: "response_read", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &TranscriptionError{
			Reason: fmt.Sprintf("http_%d", resp.StatusCode),
			Err:    fmt.Errorf("%s", string(body)),
		}
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &TranscriptionError{Reason: "response_parse", Err: err}
	}

	if parsed.Text == "" {
		return "", &TranscriptionError{Reason: "empty_transcript"}
	}

	return parsed.Text, nil
}

func (s *WhisperService) fetchAudio(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP ошибка %d при скачивании аудио", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
