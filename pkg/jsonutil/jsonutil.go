// Package jsonutil parses structured LLM output. Model responses are treated
// as untrusted JSON: they are repaired when malformed and validated against a
// Go struct, which is the source of truth for the expected shape.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON attempts to fix common JSON errors from LLM outputs: missing
// quotes around keys, single quotes, unclosed brackets, trailing commas and
// surrounding markdown code fences.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	return repaired, nil
}

// StripCodeFence removes a wrapping ```json ... ``` block if present.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}

// parseHJSON parses Hjson (lenient JSON: comments, unquoted keys, optional
// commas) and re-emits standard JSON.
func parseHJSON(in string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(in), &result); err != nil {
		return "", fmt.Errorf("hjson parse failed: %w", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SmartParse unmarshals LLM output into target, trying progressively more
// lenient strategies: standard JSON, then repair, then Hjson. The input is
// stripped of code fences first. An error means no strategy produced output
// conforming to the target struct.
func SmartParse(input string, target interface{}) error {
	input = StripCodeFence(input)

	if err := json.Unmarshal([]byte(input), target); err == nil {
		return nil
	}

	if repaired, err := RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), target); err == nil {
			return nil
		}
	}

	if lenient, err := parseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(lenient), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("all parsing strategies failed for model output")
}
