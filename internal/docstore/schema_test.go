package docstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkoval/docuchat/internal/models"
)

// The documents table constrains type and status with CHECK lists. Every
// value the code persists has to be admitted by the schema, or inserts
// fail at the constraint instead of at validation.
func TestDocumentsSchemaAdmitsModelValues(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "migrations", "004_documents.sql"))
	require.NoError(t, err)
	schema := string(raw)

	t.Run("document types", func(t *testing.T) {
		for _, typ := range []string{models.DocTypeText, models.DocTypePDF, models.DocTypeURL} {
			assert.Contains(t, schema, "'"+typ+"'", "type %q missing from CHECK constraint", typ)
		}
	})

	t.Run("document statuses", func(t *testing.T) {
		for _, status := range []string{
			models.DocStatusPending,
			models.DocStatusProcessing,
			models.DocStatusReady,
			models.DocStatusDegraded,
			models.DocStatusFailed,
		} {
			assert.Contains(t, schema, "'"+status+"'", "status %q missing from CHECK constraint", status)
		}
	})

	t.Run("no stale type values", func(t *testing.T) {
		assert.False(t, strings.Contains(schema, "'file'"), "schema admits a type the code never writes")
	})
}
