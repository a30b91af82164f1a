package sqlite

import (
	"errors"
	"strings"
)

var ErrNotFound = errors.New("not found")

type scannable interface {
	Scan(dest ...any) error
}

// generateParameters returns a placeholder group like "(?, ?, ?)".
func generateParameters(n int) string {
	if n <= 0 {
		return "()"
	}
	return "(" + strings.Repeat("?, ", n-1) + "?)"
}
