package traceload

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is the JSON schema trace files are validated against.
//
//go:embed trace-schema.json
var Schema []byte

// fullCompliance is the compliance of a file without schema errors.
const fullCompliance = 100

// ValidationError is one schema violation.
type ValidationError struct {
	Field       string
	Description string
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Valid  bool
	Events int
	Errors []ValidationError
}

// Compliance returns the percentage of events without violations.
func (r *ValidationResult) Compliance() int {
	if r.Valid {
		return fullCompliance
	}

	if r.Events == 0 {
		return 0
	}

	bad := make(map[int]struct{})

	for _, e := range r.Errors {
		if i, ok := eventOf(e.Field); ok {
			bad[i] = struct{}{}
		}
	}

	good := max(r.Events-len(bad), 0)

	return good * fullCompliance / r.Events
}

// eventOf extracts the event position from a field path such as
// "traceEvents.3.dur" or "3.ts".
func eventOf(field string) (int, bool) {
	field = strings.TrimPrefix(field, "traceEvents.")

	head, _, _ := strings.Cut(field, ".")

	i, err := strconv.Atoi(head)
	if err != nil {
		return 0, false
	}

	return i, true
}

// Validate checks the trace read from r against Schema. A non-nil error
// means the input could not be checked at all; schema violations are
// reported in the result.
func Validate(r io.Reader) (*ValidationResult, error) {
	var doc any

	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(Schema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid(), Events: countEvents(doc)}

	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{Field: e.Field(), Description: e.Description()})
	}

	return out, nil
}

func countEvents(doc any) int {
	switch v := doc.(type) {
	case []any:
		return len(v)
	case map[string]any:
		if events, ok := v["traceEvents"].([]any); ok {
			return len(events)
		}
	}

	return 0
}
