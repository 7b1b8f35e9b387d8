package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONStripsFencesAndProse(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"Sure, here you go: {\"a\": 1} hope it helps", `{"a": 1}`},
		{"prefix {\"a\": {\"b\": 2}} suffix", `{"a": {"b": 2}}`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cleanJSON(tc.in), "input: %q", tc.in)
	}
}

func TestCleanJSONExtractsArrays(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`[1, 2]`, `[1, 2]`},
		{"```json\n[{\"a\": 1}]\n```", `[{"a": 1}]`},
		{"here is the list: [{\"a\": 1}, {\"a\": 2}] done", `[{"a": 1}, {"a": 2}]`},
		// An object containing an array stays an object.
		{"result: {\"items\": [1, 2]}", `{"items": [1, 2]}`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cleanJSON(tc.in), "input: %q", tc.in)
	}
}

func TestCleanJSONLeavesGarbageAlone(t *testing.T) {
	assert.Equal(t, "no json here", cleanJSON("no json here"))
}
