package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cronside/cronside/pkg/client"
)

func apiClient() *client.Client {
	return client.New(serverFlag, tokenFlag)
}

func runCmd() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "run [job]",
		Short: "Trigger a job, or run an ad-hoc payload with --prompt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				runID string
				err   error
			)
			switch {
			case prompt != "":
				runID, err = apiClient().RunAdHoc(cmd.Context(), prompt)
			case len(args) == 1:
				runID, err = apiClient().TriggerJob(cmd.Context(), args[0])
			default:
				return fmt.Errorf("either a job name or --prompt is required")
			}
			if err != nil {
				return err
			}
			fmt.Println(runID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Ad-hoc instruction to run with system defaults")
	return cmd
}

func killCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <job>",
		Short: "Terminate a job's running attempt sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient().KillJob(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("killed %s\n", args[0])
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Recompile schedules and reconcile trigger registrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := apiClient().SyncSchedules(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("schedules synced")
			return nil
		},
	}
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and manage run history",
	}
	cmd.AddCommand(runsListCmd(), runsGetCmd(), runsDeleteCmd(), runsClearCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var (
		limit  int
		offset int
		status string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := apiClient().ListRuns(cmd.Context(), client.ListRunsOptions{
				Limit:  limit,
				Offset: offset,
				Status: status,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tJOB\tSTATUS\tSTARTED\tATTEMPTS\tEXIT")
			for _, r := range list.Runs {
				exit := "-"
				if r.ExitCode != nil {
					exit = fmt.Sprintf("%d", *r.ExitCode)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					r.RunID, r.JobName, r.Status, r.StartedAt.Local().Format(time.DateTime), r.Attempts, exit)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("%d of %d runs\n", len(list.Runs), list.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Runs to skip")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (running, success, failed, killed)")
	return cmd
}

func runsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <run-id>",
		Short: "Show one run with its full log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := apiClient().GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("run:      %s\n", detail.RunID)
			fmt.Printf("job:      %s\n", detail.JobName)
			fmt.Printf("status:   %s\n", detail.Status)
			fmt.Printf("started:  %s\n", detail.StartedAt.Local().Format(time.DateTime))
			if detail.CompletedAt != nil {
				fmt.Printf("finished: %s\n", detail.CompletedAt.Local().Format(time.DateTime))
			}
			if detail.ExitCode != nil {
				fmt.Printf("exit:     %d (attempts: %d)\n", *detail.ExitCode, detail.Attempts)
			}
			if detail.Log != "" {
				fmt.Printf("\n%s", detail.Log)
			}
			return nil
		},
	}
}

func runsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Delete one or more completed runs (and their logs)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := apiClient().DeleteRun(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Println("deleted 1 run")
				return nil
			}
			deleted, err := apiClient().DeleteRuns(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d runs\n", deleted)
			return nil
		},
	}
}

func runsClearCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all completed runs, optionally by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deleted, err := apiClient().ClearRuns(cmd.Context(), status)
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d runs\n", deleted)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only clear runs with this status (success, failed, killed)")
	return cmd
}
