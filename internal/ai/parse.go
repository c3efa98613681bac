package ai

import (
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
)

// FirstJSONObject returns the first balanced {...} span in s. Models wrap
// their JSON in prose or code fences often enough that looking for the span
// beats trusting the raw output.
func FirstJSONObject(s string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}

	return "", ierr.NewError("no balanced JSON object in model output").
		WithHint("model response did not contain JSON").
		Mark(ierr.ErrAIProcessing)
}
