package service

import (
	"context"
	"strings"

	"friday/llm"
	"friday/repository"
)

// SettingsService keeps the chat model in the database and in the running
// llm service in step.
type SettingsService struct {
	settings     repository.SettingsRepository
	llm          *llm.Service
	defaultModel string
}

func NewSettingsService(settings repository.SettingsRepository, llmService *llm.Service, defaultModel string) *SettingsService {
	return &SettingsService{settings: settings, llm: llmService, defaultModel: defaultModel}
}

// Model loads the stored model and applies it to the llm service.
func (s *SettingsService) Model(ctx context.Context) (string, error) {
	model, err := s.settings.LLMModel(ctx, s.defaultModel)
	if err != nil {
		return "", err
	}
	s.llm.SetModel(model)
	return model, nil
}

func (s *SettingsService) SetModel(ctx context.Context, model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return ErrInvalidInput
	}
	if err := s.settings.SetLLMModel(ctx, model); err != nil {
		return err
	}
	s.llm.SetModel(model)
	return nil
}
