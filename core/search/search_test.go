package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnippetsDropsBlank(t *testing.T) {
	results := []Result{
		{Title: "a", Snippet: "Sunny, 24C"},
		{Title: "b", Snippet: "   "},
		{Title: "c"},
		{Title: "d", Snippet: " Light wind "},
	}
	assert.Equal(t, []string{"Sunny, 24C", "Light wind"}, Snippets(results))
	assert.Empty(t, Snippets(nil))
}
