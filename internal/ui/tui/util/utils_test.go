package util

import (
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "Sintel", TruncateString("Sintel", 10))
	assert.Equal(t, "Big Buc...", TruncateString("Big Buck Bunny", 10))
	assert.Equal(t, "..", TruncateString("Big Buck Bunny", 2))

	// Wide runes count double
	got := TruncateString("君の名は。君の名は。", 9)
	assert.LessOrEqual(t, runewidth.StringWidth(got), 9)
	assert.Equal(t, "君の名...", got)
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "abc   ", PadRight("abc", 6))
	assert.Equal(t, "abc...", PadRight("abcdefghij", 6))
	assert.Equal(t, 8, runewidth.StringWidth(PadRight("名前", 8)))
}
