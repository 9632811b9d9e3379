package config

import (
	"errors"
	"os"
	"time"

	"github.com/samber/lo"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1/images"
	DefaultModel   = "gpt-image-1"

	// RequestTimeout bounds a single generation or edit call end to end.
	RequestTimeout = 120 * time.Second
)

var ErrMissingKey = errors.New("OPENAI_API_KEY environment variable not set")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func New(apiKey string) Config {
	base := os.Getenv("OPENAI_IMAGE_BASE_URL")
	model := os.Getenv("OPENAI_IMAGE_MODEL")
	return Config{
		APIKey:  apiKey,
		BaseURL: lo.Ternary(base != "", base, DefaultBaseURL),
		Model:   lo.Ternary(model != "", model, DefaultModel),
		Timeout: RequestTimeout,
	}
}
