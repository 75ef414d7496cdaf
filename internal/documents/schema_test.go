package documents

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ResetForReindex writes NULL into error_message and page_count, so the
// schema must keep those columns nullable.
func TestReindexResetColumnsAreNullable(t *testing.T) {
	schema, err := os.ReadFile("../../migrations/001_init.sql")
	require.NoError(t, err)

	for _, column := range []string{"page_count", "error_message"} {
		def := columnDefinition(t, string(schema), column)
		assert.NotContains(t, def, "NOT NULL", "documents.%s must stay nullable", column)
	}
}

func columnDefinition(t *testing.T, schema, column string) string {
	t.Helper()

	table := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS documents \((.*?)\);`).FindStringSubmatch(schema)
	require.Len(t, table, 2, "documents table not found in schema")

	for _, line := range strings.Split(table[1], "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), column) {
			return line
		}
	}
	t.Fatalf("column %s not found in documents table", column)
	return ""
}
