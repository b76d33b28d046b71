package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects T into a JSON schema accepted by OpenAI strict
// structured outputs: every object closed and every property required.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	b, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		panic(fmt.Sprintf("reflect schema: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(fmt.Sprintf("decode schema: %v", err))
	}
	delete(m, "$schema")
	delete(m, "$id")
	closeObjects(m)
	return m
}

func closeObjects(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]any); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			sort.Strings(required)
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				closeObjects(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		closeObjects(items)
	}
}

// decodeModelJSON unmarshals model output into v. Models sometimes wrap the
// object in prose or code fences, so on failure the outermost {...} is tried.
func decodeModelJSON(output string, v any) error {
	s := strings.TrimSpace(output)
	if s == "" {
		return io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}
