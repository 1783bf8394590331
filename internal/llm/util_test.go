package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "json code block", input: "```json\n{\"key\": \"value\"}\n```", expected: `{"key": "value"}`},
		{name: "generic code block", input: "```\n[\"a\"]\n```", expected: `["a"]`},
		{name: "code block with language", input: "```javascript\n{\"key\": 1}\n```", expected: `{"key": 1}`},
		{name: "plain", input: `  {"key": "value"} `, expected: `{"key": "value"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestStripReasoning(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripReasoning("<think>maybe {\"a\": 0}</think>\n{\"a\": 1}"))
	assert.Equal(t, `["x"]`, StripReasoning("thinking about it {\"b\": 2}</think>[\"x\"]"))
	assert.Equal(t, "<think>unterminated", StripReasoning("<think>unterminated"))
}

func TestObjectCandidates(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "preamble", input: "Here you go: {\"a\": 1} thanks", expected: []string{`{"a": 1}`}},
		{name: "nested", input: `x {"outer": {"inner": "v"}} y`, expected: []string{`{"outer": {"inner": "v"}}`}},
		{name: "braces in strings", input: `{"t": "Hello {name}!"}`, expected: []string{`{"t": "Hello {name}!"}`}},
		{name: "escaped quote", input: `{"m": "say \"}\" now"}`, expected: []string{`{"m": "say \"}\" now"}`}},
		{name: "two objects", input: `{"a":1} and {"b":2}`, expected: []string{`{"a":1}`, `{"b":2}`}},
		{name: "unbalanced prefix", input: `{ oops {"b":2}`, expected: []string{`{"b":2}`}},
		{name: "none", input: "no json here", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ObjectCandidates(tt.input))
		})
	}
}

func TestArraySpan(t *testing.T) {
	assert.Equal(t, `["Go", "Redis"]`, ArraySpan(`Skills: ["Go", "Redis"] done`))
	assert.Equal(t, `[["a"], ["b"]]`, ArraySpan(`[["a"], ["b"]]`))
	assert.Equal(t, "", ArraySpan("none"))
	assert.Equal(t, "", ArraySpan("] before ["))
}

type verdict struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Confidence  float64 `json:"confidence"`
}

func TestDecodeFirstObject_SkipsCandidatesThatFailValidation(t *testing.T) {
	raw := "<think>draft {\"is_duplicate\": true}</think>\nExample: {\"note\": \"x\"}\nAnswer: {\"is_duplicate\": true, \"confidence\": 0.9}"
	requireConfidence := func(candidate string) error {
		if !strings.Contains(candidate, "confidence") {
			return errors.New("missing confidence")
		}
		return nil
	}

	var got verdict
	require.NoError(t, DecodeFirstObject(raw, "duplicate_check", requireConfidence, &got))
	assert.Equal(t, verdict{IsDuplicate: true, Confidence: 0.9}, got)
}

func TestDecodeFirstObject_Malformed(t *testing.T) {
	var got verdict
	err := DecodeFirstObject("I cannot answer that.", "duplicate_check", nil, &got)

	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "duplicate_check", malformed.Payload)

	err = DecodeFirstObject(`{"is_duplicate": "yes"}`, "duplicate_check", nil, &got)
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, verdict{}, got)
}

func TestDecodeArray(t *testing.T) {
	var skills []string
	require.NoError(t, DecodeArray("```json\n[\"Python\", \"FastAPI\"]\n```", "skills", nil, &skills))
	assert.Equal(t, []string{"Python", "FastAPI"}, skills)

	err := DecodeArray(`["unterminated"`, "skills", nil, &skills)
	var malformed *MalformedError
	assert.ErrorAs(t, err, &malformed)
}
