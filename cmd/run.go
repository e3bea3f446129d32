package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/moodang/internal/commands"
	"github.com/nextlevelbuilder/moodang/internal/config"
	"github.com/nextlevelbuilder/moodang/internal/script"
	"github.com/nextlevelbuilder/moodang/internal/shellenv"
	"github.com/nextlevelbuilder/moodang/internal/vfs"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute a script file head-less and print its output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}

			opts := shellenv.DefaultOptions()
			opts.MaxProcesses = cfg.MaxProcesses
			opts.DebugLog = cfg.DebugLog

			env := shellenv.New(vfs.NewSeeded(), opts)
			registry := commands.NewRegistry()
			exec := script.NewExecutor(env, registry)

			result := exec.RunSource(args[0])
			if result.Stdout != "" {
				fmt.Fprint(os.Stdout, result.Stdout)
			}
			if result.Stderr != "" {
				fmt.Fprint(os.Stderr, result.Stderr)
			}
			if result.ExitCode != 0 {
				os.Exit(result.ExitCode)
			}
			return nil
		},
	}
	return cmd
}
