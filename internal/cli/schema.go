// Package cli holds helpers shared by the supporthub and supporthubd command
// trees.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const helpJSONFlag = "help-json"

// FlagSpec describes one command line flag.
type FlagSpec struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// CommandSpec is the machine readable form of a command and its children,
// printed by --help-json for scripts and tooling.
type CommandSpec struct {
	Name        string        `json:"name"`
	Path        string        `json:"path"`
	Use         string        `json:"use,omitempty"`
	Aliases     []string      `json:"aliases,omitempty"`
	Description string        `json:"description,omitempty"`
	Long        string        `json:"long,omitempty"`
	Flags       []FlagSpec    `json:"flags,omitempty"`
	Subcommands []CommandSpec `json:"subcommands,omitempty"`
}

// Describe builds the schema for cmd. Hidden commands and the help command are
// left out.
func Describe(cmd *cobra.Command) CommandSpec {
	spec := CommandSpec{
		Name:        cmd.Name(),
		Path:        cmd.CommandPath(),
		Use:         cmd.Use,
		Aliases:     cmd.Aliases,
		Description: cmd.Short,
		Long:        cmd.Long,
	}

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == helpJSONFlag || f.Name == "help" {
			return
		}
		spec.Flags = append(spec.Flags, describeFlag(f))
	})
	sort.Slice(spec.Flags, func(i, j int) bool { return spec.Flags[i].Name < spec.Flags[j].Name })

	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		spec.Subcommands = append(spec.Subcommands, Describe(sub))
	}

	return spec
}

func describeFlag(f *pflag.Flag) FlagSpec {
	_, required := f.Annotations[cobra.BashCompOneRequiredFlag]
	return FlagSpec{
		Name:        f.Name,
		Shorthand:   f.Shorthand,
		Type:        f.Value.Type(),
		Default:     f.DefValue,
		Description: f.Usage,
		Required:    required,
	}
}

// AddHelpJSONFlag registers --help-json on root and every descendant.
func AddHelpJSONFlag(root *cobra.Command) {
	root.PersistentFlags().Bool(helpJSONFlag, false, "Output the command tree as JSON")
}

// HandleHelpJSON prints the schema of the command named by args when they
// contain --help-json. It runs before Execute so argument validation on the
// target command does not get in the way. It reports whether it printed.
func HandleHelpJSON(root *cobra.Command, args []string, w io.Writer) (bool, error) {
	for i, arg := range args {
		if arg != "--"+helpJSONFlag {
			continue
		}
		out, err := json.MarshalIndent(Describe(findCommand(root, args[:i])), "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to generate command schema: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return true, err
	}
	return false, nil
}

func findCommand(cmd *cobra.Command, args []string) *cobra.Command {
	if len(args) == 0 {
		return cmd
	}
	for _, sub := range cmd.Commands() {
		if sub.Name() == args[0] || sub.HasAlias(args[0]) {
			return findCommand(sub, args[1:])
		}
	}
	// Positional arguments and flag values end the walk.
	return cmd
}
