package commands

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestCompletionCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "bash completion",
			args:    []string{"completion", "bash"},
			wantErr: false,
		},
		{
			name:    "zsh completion",
			args:    []string{"completion", "zsh"},
			wantErr: false,
		},
		{
			name:    "fish completion",
			args:    []string{"completion", "fish"},
			wantErr: false,
		},
		{
			name:    "powershell completion",
			args:    []string{"completion", "powershell"},
			wantErr: false,
		},
		{
			name:    "invalid shell",
			args:    []string{"completion", "invalid"},
			wantErr: true,
		},
		{
			name:    "no shell specified",
			args:    []string{"completion"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)

			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !strings.Contains(out, "buf2d") {
				t.Error("completion script does not mention buf2d")
			}
		})
	}
}

func TestFlagCompletions(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective)
		wantItems []string
	}{
		{"device", completeDevice, []string{"auto", "cpu", "cuda", "emulated"}},
		{"space", completeSpace, []string{"host", "device"}},
		{"size", completeSize, []string{"4x3", "640x480"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completions, directive := tt.fn(nil, nil, "")

			for _, want := range tt.wantItems {
				found := false
				for _, completion := range completions {
					if strings.HasPrefix(completion, want) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("Expected completion %q not found", want)
				}
			}

			if directive != cobra.ShellCompDirectiveNoFileComp {
				t.Errorf("Expected NoFileComp directive, got %v", directive)
			}
		})
	}
}

func TestFlagCompletionsRegistered(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"__complete", "seeds", "--space", ""}, "device"},
		{[]string{"__complete", "roundtrip", "--size", ""}, "640x480"},
		{[]string{"__complete", "resize", "--to", ""}, "4x3"},
		{[]string{"__complete", "dump", "--device", ""}, "emulated"},
	}

	for _, tt := range tests {
		out, err := execute(t, tt.args...)
		if err != nil {
			t.Fatalf("%v failed: %v", tt.args, err)
		}
		if !strings.Contains(out, tt.want) {
			t.Errorf("%v completions missing %q:\n%s", tt.args[1:], tt.want, out)
		}
	}
}

func TestCompletionValidArgs(t *testing.T) {
	validShells := []string{"bash", "zsh", "fish", "powershell"}

	if len(completionCmd.ValidArgs) != len(validShells) {
		t.Errorf("Expected %d valid args, got %d", len(validShells), len(completionCmd.ValidArgs))
	}

	for _, shell := range validShells {
		found := false
		for _, validArg := range completionCmd.ValidArgs {
			if validArg == shell {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected shell %q not found in ValidArgs", shell)
		}
	}
}
