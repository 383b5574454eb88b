package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTree() *cobra.Command {
	root := &cobra.Command{Use: "supporthub"}
	root.PersistentFlags().String("tenant", "", "Tenant ID")
	AddHelpJSONFlag(root)

	ticket := &cobra.Command{Use: "ticket", Aliases: []string{"t"}, Short: "Ticket workflow"}
	resolve := &cobra.Command{Use: "resolve <ticket_id>", Short: "Resolve", Args: cobra.ExactArgs(1), Run: func(*cobra.Command, []string) {}}
	resolve.Flags().StringP("summary", "s", "", "Final solution summary")
	_ = resolve.MarkFlagRequired("summary")
	resolve.Flags().String("note", "", "Log note")
	ticket.AddCommand(resolve)
	ticket.AddCommand(&cobra.Command{Use: "secret", Hidden: true, Run: func(*cobra.Command, []string) {}})

	root.AddCommand(ticket)
	return root
}

func TestDescribe(t *testing.T) {
	spec := Describe(testTree())

	assert.Equal(t, "supporthub", spec.Name)
	require.Len(t, spec.Flags, 1)
	assert.Equal(t, "tenant", spec.Flags[0].Name)

	require.Len(t, spec.Subcommands, 1)
	ticket := spec.Subcommands[0]
	assert.Equal(t, []string{"t"}, ticket.Aliases)
	require.Len(t, ticket.Subcommands, 1, "hidden commands are skipped")

	resolve := ticket.Subcommands[0]
	assert.Equal(t, "supporthub ticket resolve", resolve.Path)
	require.Len(t, resolve.Flags, 2)
	assert.Equal(t, "note", resolve.Flags[0].Name)
	assert.False(t, resolve.Flags[0].Required)
	assert.Equal(t, "summary", resolve.Flags[1].Name)
	assert.Equal(t, "s", resolve.Flags[1].Shorthand)
	assert.True(t, resolve.Flags[1].Required)
}

func TestHandleHelpJSON(t *testing.T) {
	t.Run("not requested", func(t *testing.T) {
		var out bytes.Buffer
		printed, err := HandleHelpJSON(testTree(), []string{"ticket", "resolve", "t-1"}, &out)
		require.NoError(t, err)
		assert.False(t, printed)
		assert.Empty(t, out.String())
	})

	t.Run("resolves the target through aliases", func(t *testing.T) {
		var out bytes.Buffer
		printed, err := HandleHelpJSON(testTree(), []string{"t", "resolve", "--help-json"}, &out)
		require.NoError(t, err)
		assert.True(t, printed)

		var spec CommandSpec
		require.NoError(t, json.Unmarshal(out.Bytes(), &spec))
		assert.Equal(t, "resolve", spec.Name)
	})

	t.Run("positional arguments stop the walk", func(t *testing.T) {
		var out bytes.Buffer
		_, err := HandleHelpJSON(testTree(), []string{"ticket", "unknown", "--help-json"}, &out)
		require.NoError(t, err)

		var spec CommandSpec
		require.NoError(t, json.Unmarshal(out.Bytes(), &spec))
		assert.Equal(t, "ticket", spec.Name)
	})
}
