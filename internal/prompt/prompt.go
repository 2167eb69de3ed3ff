// Package prompt renders the phi-3-vision chat template and validates the
// image input accompanying it.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSystemPrompt is used when a request does not carry one.
const DefaultSystemPrompt = "You are an AI assistant that helps people find information."

// Compose renders the turn-delimited template the model was trained with.
// The byte layout must be reproduced exactly; the runtime substitutes the
// image embedding at the <|image_1|> placeholder.
func Compose(systemPrompt, userPrompt string) string {
	return "<|system|>" + systemPrompt + "<|end|>" +
		"<|user|><|image_1|>" + userPrompt + "<|end|>" +
		"<|assistant|>"
}

// CleanImagePath strips surrounding whitespace and one layer of matching
// quote characters. Paths pasted from shells and file managers often arrive
// quoted.
func CleanImagePath(raw string) string {
	s := strings.TrimSpace(raw)
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}
	return s
}

// ValidateImagePath cleans raw and verifies it names an existing, non-empty
// regular file. Returns the cleaned absolute path.
func ValidateImagePath(raw string) (string, error) {
	cleaned := CleanImagePath(raw)
	if cleaned == "" {
		return "", fmt.Errorf("no image path given")
	}
	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%s is a directory", abs)
	}
	if fi.Size() == 0 {
		return "", fmt.Errorf("%s is empty", abs)
	}
	return abs, nil
}
