package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{"bare object", `{"question":"What occasion?"}`, `{"question":"What occasion?"}`, true},
		{"prose around object", "Sure!\n```json\n{\"outfit\":[1]}\n```\nEnjoy", `{"outfit":[1]}`, true},
		{"nested braces", `{"a":{"b":1}}`, `{"a":{"b":1}}`, true},
		{"no braces", "I'm not sure, can you clarify?", "", false},
		{"closing before opening", "} then {", "", false},
		{"opening only", "look at this {", "", false},
		{"empty", "", "", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(c.input)
			assert.Equal(t, c.found, ok)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestExtractJSONObjectWidensOverProseBraces(t *testing.T) {
	got, ok := ExtractJSONObject(`I like {bold} looks {"question":"x"}`)
	assert.True(t, ok)
	assert.Equal(t, `{bold} looks {"question":"x"}`, got)
}
