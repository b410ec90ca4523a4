package ai

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed prompts.json
var promptFile embed.FS

var (
	promptsOnce sync.Once
	prompts     map[string]string
	promptsErr  error
)

func prompt(key string) (string, error) {
	promptsOnce.Do(func() {
		data, err := promptFile.ReadFile("prompts.json")
		if err != nil {
			promptsErr = fmt.Errorf("failed to read prompt file: %w", err)
			return
		}
		promptsErr = json.Unmarshal(data, &prompts)
	})
	if promptsErr != nil {
		return "", promptsErr
	}
	p, ok := prompts[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found", key)
	}
	return p, nil
}

// format replaces {{.Key}} placeholders with values from data.
func format(template string, data map[string]string) string {
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
