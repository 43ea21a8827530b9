package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootApp_Commands(t *testing.T) {
	app := rootApp()

	names := make([]string, 0, len(app.Commands))
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"sweep", "watch", "reindex"}, names)
}

func TestReindex_RequiresID(t *testing.T) {
	err := rootApp().Run([]string{"blogmind-indexer", "reindex"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id")
}
