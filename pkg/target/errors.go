package target

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// HTTPError is a non-2xx response from a target.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("http status %d", e.Status)
	}
	return fmt.Sprintf("http status %d: %s", e.Status, e.Body)
}

// SchemaError is a 2xx io-test response whose body does not match the
// expected shape. The response counts as a failed call: a target that
// returns garbage timing data must not contribute to the comparison.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "io-test response schema: " + strings.Join(e.Problems, "; ")
}

// ioTestSchema pins down the parts of the response the harness reads.
const ioTestSchema = `{
	"type": "object",
	"required": ["timing", "results"],
	"properties": {
		"timing": {
			"type": "object",
			"required": ["total_duration", "requests_per_second"],
			"properties": {
				"total_duration": {"type": "number", "minimum": 0},
				"requests_per_second": {"type": "number", "minimum": 0}
			}
		},
		"results": {
			"type": "object",
			"required": ["successful", "failed"],
			"properties": {
				"successful": {"type": "integer", "minimum": 0},
				"failed": {"type": "integer", "minimum": 0}
			}
		}
	}
}`

func validateIOTestBody(body []byte) error {
	doc := strings.TrimSpace(string(body))
	if doc == "" {
		doc = "null"
	}
	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(ioTestSchema),
		gojsonschema.NewStringLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate io-test response: %w", err)
	}
	if res.Valid() {
		return nil
	}
	problems := make([]string, 0, len(res.Errors()))
	for _, item := range res.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", item.Field(), item.Description()))
	}
	return &SchemaError{Problems: problems}
}
