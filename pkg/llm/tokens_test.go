package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Zero(t, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("a"))

	short := EstimateTokens("B: Hello there.\nA: Hi.")
	long := EstimateTokens(strings.Repeat("B: Hello there.\nA: Hi.\n", 10))
	assert.Greater(t, long, short*5)

	// Han text has no spaces but still counts per character
	assert.GreaterOrEqual(t, EstimateTokens("你好，欢迎光临咖啡店"), 9)
}
