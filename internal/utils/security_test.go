package contextutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskDatabaseURL(t *testing.T) {
	t.Run("mysql dsn", func(t *testing.T) {
		masked := MaskDatabaseURL("root:s3cret@tcp(localhost:3306)/mydb?parseTime=true")
		assert.NotContains(t, masked, "s3cret")
		assert.Contains(t, masked, "root:***@")
		assert.Contains(t, masked, "tcp(localhost:3306)/mydb")
	})

	t.Run("no password", func(t *testing.T) {
		masked := MaskDatabaseURL("root@tcp(localhost:3306)/mydb")
		assert.Contains(t, masked, "tcp(localhost:3306)/mydb")
		assert.NotContains(t, masked, "***")
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "[EMPTY]", MaskDatabaseURL(""))
	})
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a**@example.com", MaskEmail("ana@example.com"))
	assert.Equal(t, "***", MaskEmail("abc"))
	assert.Equal(t, "****", MaskEmail("@x.y"))
}
