package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "import", "report"}, names)

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("in-memory"))
	assert.NotNil(t, serve.Flags().Lookup("seed"))
}

func TestRootCommand_ArgumentValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"report without event", []string{"report"}},
		{"report with two events", []string{"report", "a", "b"}},
		{"import without files", []string{"import"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCommand()
			cmd.SetArgs(tt.args)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			assert.Error(t, cmd.Execute())
		})
	}
}
