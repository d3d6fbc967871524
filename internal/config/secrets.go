package config

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// LLMAPIKeyKey is the project spelling; DeepseekEnvKey is the bare
	// environment-variable spelling older secrets files use.
	LLMAPIKeyKey   = "llm.api_key"
	DeepseekEnvKey = "DEEPSEEK_API_KEY"
)

// Secrets holds credentials kept out of the main config file.
type Secrets struct {
	k *koanf.Koanf
}

func LoadSecrets(path string) (Secrets, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		LLMAPIKeyKey:   "",
		DeepseekEnvKey: "",
	}

	k.Load(confmap.Provider(defaults, "."), nil)

	err := k.Load(file.Provider(path), yaml.Parser())
	if err != nil {
		return Secrets{}, err
	}

	return Secrets{k}, nil
}

// LLMAPIKey returns the key for the summarization endpoint, preferring the
// llm.api_key entry over the bare DEEPSEEK_API_KEY spelling.
func (s Secrets) LLMAPIKey() string {
	if key := s.k.String(LLMAPIKeyKey); key != "" {
		return key
	}
	return s.k.String(DeepseekEnvKey)
}
