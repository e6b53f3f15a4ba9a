package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/taskrun/internal/config"
	"github.com/flemzord/taskrun/pkg/app"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configShowCmd())
	return cmd
}

// configPath returns the positional path, the --config flag or the first
// file found in the standard locations.
func configPath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p, nil
	}
	return app.ResolveConfigPath()
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			tasks, err := app.BuildTasks(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (%d tasks)\n", len(tasks))
			for _, t := range tasks {
				fmt.Fprintf(out, "  %s\t%s\n", t.ID(), t.Name())
			}
			return nil
		},
	}
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [path]",
		Short: "Print the expanded configuration with secrets redacted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			raw, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			var tree map[string]any
			if err := yaml.Unmarshal(raw, &tree); err != nil {
				return err
			}
			app.NewRedactor(cfg).RedactMap(tree)

			out, err := yaml.Marshal(tree)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
