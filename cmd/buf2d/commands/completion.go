package commands

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for buf2d.

To load completions:

Bash:
  $ buf2d completion bash > ~/.local/share/bash-completion/completions/buf2d
  $ source ~/.local/share/bash-completion/completions/buf2d

Zsh:
  $ buf2d completion zsh > ~/.zsh/completion/_buf2d
  $ echo 'fpath=(~/.zsh/completion $fpath)' >> ~/.zshrc
  $ echo 'autoload -Uz compinit && compinit' >> ~/.zshrc

Fish:
  $ buf2d completion fish > ~/.config/fish/completions/buf2d.fish

PowerShell:
  PS> buf2d completion powershell | Out-String | Invoke-Expression
  # To persist, add the output to your PowerShell profile
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:                  runCompletion,
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	switch args[0] {
	case "bash":
		return cmd.Root().GenBashCompletion(out)
	case "zsh":
		return cmd.Root().GenZshCompletion(out)
	case "fish":
		return cmd.Root().GenFishCompletion(out, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletionWithDesc(out)
	}
	return nil
}

func completeDevice(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"auto\tCUDA if present, otherwise emulated",
		"cpu\tHost memory only",
		"cuda\tCUDA GPU",
		"emulated\tAccelerator emulated in host memory",
	}, cobra.ShellCompDirectiveNoFileComp
}

func completeSpace(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"host\tHost memory",
		"device\tDevice memory",
	}, cobra.ShellCompDirectiveNoFileComp
}

func completeSize(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"4x3", "8x6", "64x64", "640x480", "1920x1080"}, cobra.ShellCompDirectiveNoFileComp
}

// registerBufferCompletions registers completions for the flags added by
// addBufferFlags. Flags must exist before their completions are registered.
func registerBufferCompletions(cmd *cobra.Command) {
	cmd.RegisterFlagCompletionFunc("space", completeSpace)
	cmd.RegisterFlagCompletionFunc("size", completeSize)
}
