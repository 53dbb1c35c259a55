package utils

import (
	"strings"

	"github.com/google/uuid"
)

func GenerateUUID() string {
	return uuid.NewString()
}

// DerivedName is the name an uploaded file is tracked under: everything before the first '.'.
func DerivedName(filename string) string {
	name, _, _ := strings.Cut(filename, ".")
	return name
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
