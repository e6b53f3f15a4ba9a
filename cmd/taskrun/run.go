package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flemzord/taskrun/internal/console"
	"github.com/flemzord/taskrun/internal/runner"
	"github.com/flemzord/taskrun/internal/schedule"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the scheduled tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)
			return console.List(cmd.OutOrStdout(), a.Schedule(), a.Now())
		},
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the tasks that are due, or the given tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, _ := cmd.Flags().GetStringSlice("id")
			verbose, _ := cmd.Flags().GetBool("verbose")

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)

			out := cmd.OutOrStdout()
			report := console.NewReporter(out, verbose)
			report.Redact = a.Redactor().Redact
			ctx := cmd.Context()

			if len(ids) > 0 {
				failed := false
				for _, id := range ids {
					res, err := a.Processor().RunTask(ctx, a.Schedule(), id)
					if errors.Is(err, schedule.ErrTaskNotFound) {
						failed = true
						report.NotFound(id)
						continue
					}
					if res != nil {
						report.Result(res)
						failed = failed || res.Failed()
					}
					if err != nil {
						return err
					}
				}
				if failed {
					return errTasksFailed
				}
				return nil
			}

			s := a.Schedule()
			fmt.Fprintf(out, "Schedule %s starting\n", s.Name())
			results, err := a.Processor().Run(ctx, s, a.Now())
			report.Results(results)
			var hookErr *runner.HookError
			if errors.As(err, &hookErr) {
				return err
			}
			fmt.Fprintf(out, "Schedule %s finished\n", s.Name())

			if err != nil {
				return err
			}
			if results.Failed().Len() > 0 {
				return errTasksFailed
			}
			return nil
		},
	}
	cmd.Flags().StringSlice("id", nil, "Run the tasks with these ids instead of the due tasks")
	cmd.Flags().BoolP("verbose", "v", false, "Print task output")
	return cmd
}
