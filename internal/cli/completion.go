package cli

import (
	"github.com/spf13/cobra"
)

func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for def2cmake.

Definition file arguments complete to *.morph files.

Bash:
  $ source <(def2cmake completion bash)

Zsh:
  $ def2cmake completion zsh > "${fpath[1]}/_def2cmake"

Fish:
  $ def2cmake completion fish > ~/.config/fish/completions/def2cmake.fish

PowerShell:
  PS> def2cmake completion powershell | Out-String | Invoke-Expression
`,
		// Completion needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Args:              cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:         []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}

			return nil
		},
	}

	return cmd
}

// completeDefinitionFile completes the single definition file argument of a
// command to morphologies.
func completeDefinitionFile(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	return []string{"morph"}, cobra.ShellCompDirectiveFilterFileExt
}

// registerDefinitionCompletion wires completeDefinitionFile and directory
// completion for --definitions and --output-dir where present.
func registerDefinitionCompletion(cmd *cobra.Command) {
	cmd.ValidArgsFunction = completeDefinitionFile

	for _, name := range []string{"definitions", "output-dir", "cache-dir"} {
		if cmd.Flags().Lookup(name) != nil {
			_ = cmd.RegisterFlagCompletionFunc(name, func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
				return nil, cobra.ShellCompDirectiveFilterDirs
			})
		}
	}
}
