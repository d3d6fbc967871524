package config

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DBPathKey      = "db.path"
	ScanPathsKey   = "scan.paths"
	ScanFormatsKey = "scan.formats"
	SearchTermKey  = "search.term"
	SearchLimitKey = "search.limit"
	LLMModelKey    = "llm.model"
	LogLevelKey    = "log.level"
)

func LoadConfig(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		DBPathKey:      "prompts.sqlite",
		ScanFormatsKey: []string{"png", "jpg", "jpeg", "webp"},
		SearchLimitKey: 10,
		LLMModelKey:    "deepseek-chat",
		LogLevelKey:    "info",
	}

	k.Load(confmap.Provider(defaults, "."), nil)

	err := k.Load(file.Provider(path), yaml.Parser())
	return k, err
}
