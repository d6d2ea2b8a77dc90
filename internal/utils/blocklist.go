package utils

import (
	"bufio"
	"os"
	"strings"
)

// Blocklist holds source patterns that are rejected at submission
type Blocklist struct {
	terms []string
}

// LoadBlocklist loads blocked source patterns from a file
func LoadBlocklist(path string) (*Blocklist, error) {
	// If file doesn't exist, return empty blocklist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Blocklist{terms: []string{}}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var terms []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		term := strings.TrimSpace(scanner.Text())
		if term != "" && !strings.HasPrefix(term, "#") {
			terms = append(terms, term)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Blocklist{terms: terms}, nil
}

// IsBlocked checks if a reference matches any blocked pattern
// Returns (isBlocked, matchedTerm)
func (b *Blocklist) IsBlocked(reference string) (bool, string) {
	refLower := strings.ToLower(reference)

	for _, term := range b.terms {
		termLower := strings.ToLower(term)
		if strings.Contains(refLower, termLower) {
			return true, term
		}
	}

	return false, ""
}
