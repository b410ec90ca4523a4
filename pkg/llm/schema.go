package llm

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemaMu    sync.Mutex
	schemaCache = map[string]*gojsonschema.Schema{}
)

// ValidationError lists every schema violation found in a document.
type ValidationError struct {
	Schema string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("response does not match %s schema: %s", e.Schema, strings.Join(e.Issues, "; "))
}

func loadSchema(name string) (*gojsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemaCache[name]; ok {
		return s, nil
	}
	raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compiling schema %q: %w", name, err)
	}
	schemaCache[name] = s
	return s, nil
}

// Validate checks doc against the named embedded schema.
func Validate(name, doc string) error {
	schema, err := loadSchema(name)
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, e.String())
	}
	return &ValidationError{Schema: name, Issues: issues}
}

// ValidateQuestions checks a generated question batch of the given type
// (mcq, coding or behavioral).
func ValidateQuestions(questionType, doc string) error {
	return Validate(questionType, doc)
}

func ValidateScore(doc string) error {
	return Validate("score", doc)
}
