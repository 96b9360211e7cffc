package categories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		subreddit string
		expected  string
	}{
		{
			name:      "mapped subreddit",
			subreddit: "selfhosted",
			expected:  "Self-Hosting & Homelab",
		},
		{
			name:      "case sensitive match",
			subreddit: "LocalLLaMA",
			expected:  "AI & LLMs",
		},
		{
			name:      "unmapped subreddit falls back",
			subreddit: "notarealsubreddit",
			expected:  Uncategorized,
		},
		{
			name:      "empty input falls back",
			subreddit: "",
			expected:  Uncategorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(tt.subreddit))
		})
	}
}

func TestAll_IncludesUncategorized(t *testing.T) {
	all := All()
	assert.Contains(t, all, Uncategorized)
	assert.Contains(t, all, "Gaming & Retro")
	assert.Len(t, all, len(table)+1)
}

// The table is supposed to hold each subreddit under exactly one category.
func TestTable_NoDuplicateSubreddits(t *testing.T) {
	seen := map[string]string{}
	for category, subs := range table {
		for _, sub := range subs {
			prev, ok := seen[sub]
			assert.Falsef(t, ok, "subreddit %q in both %q and %q", sub, prev, category)
			seen[sub] = category
		}
	}
}
