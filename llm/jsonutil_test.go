package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare object",
			content: `{"issues": []}`,
			want:    `{"issues": []}`,
		},
		{
			name:    "markdown fence",
			content: "Here you go:\n```json\n{\"issues\": []}\n```\nDone.",
			want:    `{"issues": []}`,
		},
		{
			name:    "fence without language tag",
			content: "```\n{\"issues\": []}\n```",
			want:    `{"issues": []}`,
		},
		{
			name:    "trailing comma removed",
			content: `{"issues": [{"severity": "high",},]}`,
			want:    `{"issues": [{"severity": "high"}]}`,
		},
		{
			name:    "line comment stripped",
			content: "{\n\"severity\": \"high\" // model explains itself\n}",
			want:    "{\n\"severity\": \"high\"\n}",
		},
		{
			name:    "slashes inside strings survive",
			content: `{"url": "https://example.com/path"}`,
			want:    `{"url": "https://example.com/path"}`,
		},
		{
			name:    "no json at all",
			content: "I could not produce a structured answer.",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}

func TestExtractJSON_ResultUnmarshals(t *testing.T) {
	content := "```json\n{\n  \"issues\": [\n    {\"rule_id\": \"r1\", \"confidence\": 0.9,}, // main finding\n  ],\n}\n```"

	extracted := ExtractJSON(content)
	require.NotEmpty(t, extracted)

	var parsed struct {
		Issues []struct {
			RuleID     string  `json:"rule_id"`
			Confidence float64 `json:"confidence"`
		} `json:"issues"`
	}
	require.NoError(t, json.Unmarshal([]byte(extracted), &parsed))
	require.Len(t, parsed.Issues, 1)
	assert.Equal(t, "r1", parsed.Issues[0].RuleID)
}
