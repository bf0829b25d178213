package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSafe(t *testing.T) {
	tests := []struct {
		name string
		body string
		safe bool
	}{
		{"empty body", "", true},
		{"plain json", `{"start_date":"2025-06-01","end_date":"2025-06-30"}`, true},
		{"single dots are fine", "./relative/path", true},
		{"path traversal", `{"file":"../../etc/passwd"}`, false},
		{"windows traversal", `..\..\windows\system32`, false},
		{"script tag", `<script>alert(1)</script>`, false},
		{"script tag with attributes", `<SCRIPT src="evil.js">`, false},
		{"union select", "1 UNION ALL SELECT password FROM users", false},
		{"union without select", "credit union membership", true},
		{"drop table", "; DROP TABLE attendance;--", false},
		{"drop without table", "drop me a line", true},
		{"exec call", "exec(payload)", false},
		{"exec as word", "executive summary", true},
		{"mixed case", "UnIoN sElEcT *", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.safe, IsSafe([]byte(tt.body)))
		})
	}
}
