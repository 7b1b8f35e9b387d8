package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestClipBodyNeverSplitsRunes(t *testing.T) {
	korean := strings.Repeat("개인정보", 100) // 3 bytes per rune

	for limit := 1; limit <= 16; limit++ {
		out := clipBody(korean, limit)
		assert.True(t, utf8.ValidString(out), "limit %d produced invalid UTF-8", limit)
		assert.LessOrEqual(t, len(out), limit)
	}

	// A limit landing mid-rune backs up to the previous boundary.
	assert.Equal(t, "개인", clipBody(korean, 8))
}

func TestClipBodyLeavesShortTextAlone(t *testing.T) {
	assert.Equal(t, "short", clipBody("short", 100))
	assert.Equal(t, "", clipBody("", 10))
}
