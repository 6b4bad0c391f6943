package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences(`{"a":1}`))
}

func TestNormalizeAndSanitizeJSONDropsUnknownKeys(t *testing.T) {
	out, dropped, err := NormalizeAndSanitizeJSON([]byte(`{"category":"Other","confidence":0.9}`), nil)
	require.NoError(t, err)
	assert.Contains(t, dropped, "confidence(unknown)")
	assert.NotContains(t, string(out), "confidence")
}

func TestNormalizeAndSanitizeJSONTruncatesSummary(t *testing.T) {
	long := strings.Repeat("a", SummaryMaxLength+100)
	out, dropped, err := NormalizeAndSanitizeJSON([]byte(`{"category":"Other","summary":"`+long+`"}`), nil)
	require.NoError(t, err)
	assert.Contains(t, dropped, "summary(truncated)")
	assert.LessOrEqual(t, len(out), SummaryMaxLength+64)
}

func TestNormalizeAndSanitizeJSONRejectsNonObject(t *testing.T) {
	_, _, err := NormalizeAndSanitizeJSON([]byte(`"just a string"`), nil)
	assert.Error(t, err)
}

func TestNormalizeAndSanitizeJSONCanonicalizesCategory(t *testing.T) {
	out, dropped, err := NormalizeAndSanitizeJSON([]byte(`{"category":"Lab Report"}`), nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"category":"LabReport"`)
	assert.Contains(t, dropped, NoteCategoryCanonicalized)
}

func TestNormalizeAndSanitizeJSONExactCategoryUnmarked(t *testing.T) {
	out, dropped, err := NormalizeAndSanitizeJSON([]byte(`{"category":"LabReport"}`), nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"category":"LabReport"`)
	assert.NotContains(t, dropped, NoteCategoryCanonicalized)
}

func TestNormalizeAndSanitizeJSONLeavesUnknownCategoryForSchema(t *testing.T) {
	out, _, err := NormalizeAndSanitizeJSON([]byte(`{"category":"Veterinary Invoice"}`), nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"category":"Veterinary Invoice"`)
}

func TestNormalizeAndSanitizeJSONTruncatesSummaryOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", SummaryMaxLength) // two bytes per rune
	out, dropped, err := NormalizeAndSanitizeJSON([]byte(`{"category":"Other","summary":"`+long+`"}`), nil)
	require.NoError(t, err)
	assert.Contains(t, dropped, "summary(truncated)")
	assert.True(t, utf8.Valid(out))
	assert.NotContains(t, string(out), "�")
}

func TestTruncateBytes(t *testing.T) {
	assert.Equal(t, "abc", TruncateBytes("abc", 10))
	assert.Equal(t, "ab", TruncateBytes("abcd", 2))
	assert.Equal(t, "é", TruncateBytes("éé", 3), "must not split the second rune")
	assert.Equal(t, "", TruncateBytes("abc", 0))
}
