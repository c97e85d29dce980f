package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/cronside/cronside/pkg/client"
)

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage job definitions",
	}
	cmd.AddCommand(jobsListCmd(), jobsCreateCmd(), jobsDeleteCmd(), jobsToggleCmd())
	return cmd
}

func jobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the effective job definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, err := apiClient().ListJobs(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSCHEDULE\tENABLED\tRUNNING")
			for _, j := range jobs {
				schedule := j.Schedule
				if schedule == "" {
					schedule = "manual"
				}
				enabled := j.Enabled == nil || *j.Enabled
				fmt.Fprintf(w, "%s\t%s\t%t\t%t\n", j.Name, schedule, enabled, j.Running)
			}
			return w.Flush()
		},
	}
}

func jobsCreateCmd() *cobra.Command {
	var j client.Job
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a job definition (interactive when --name is omitted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if j.Name == "" {
				if err := promptJobForm(&j); err != nil {
					return err
				}
			}
			if err := apiClient().CreateJob(cmd.Context(), j); err != nil {
				return err
			}
			fmt.Printf("created %s\n", j.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&j.Name, "name", "", "Job name (lowercase alphanumerics and hyphens)")
	cmd.Flags().StringVar(&j.Prompt, "prompt", "", "Command payload")
	cmd.Flags().StringVar(&j.Schedule, "schedule", "", "Cron expression (omit for manual-only)")
	cmd.Flags().IntVar(&j.Retries, "retries", 0, "Retry attempts after the first failure")
	cmd.Flags().IntVar(&j.Timeout, "timeout", 0, "Per-attempt timeout in seconds")
	cmd.Flags().StringVar(&j.Workdir, "workdir", "", "Working directory for the command")
	return cmd
}

// promptJobForm collects a definition interactively.
func promptJobForm(j *client.Job) error {
	var retries string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("Lowercase alphanumerics and hyphens").
				Value(&j.Name),
			huh.NewText().
				Title("Command").
				Description("Shell payload executed on each trigger").
				Value(&j.Prompt),
			huh.NewInput().
				Title("Schedule").
				Description("Cron expression; leave empty for manual-only").
				Value(&j.Schedule),
			huh.NewInput().
				Title("Retries").
				Description("Retry attempts after the first failure").
				Value(&retries).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					n, err := strconv.Atoi(s)
					if err != nil || n < 0 {
						return fmt.Errorf("must be a non-negative integer")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if retries != "" {
		j.Retries, _ = strconv.Atoi(retries)
	}
	return nil
}

func jobsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a job definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient().DeleteJob(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

func jobsToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <name>",
		Short: "Pause or resume a job's schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := apiClient().ToggleJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if enabled {
				fmt.Printf("%s resumed\n", args[0])
			} else {
				fmt.Printf("%s paused\n", args[0])
			}
			return nil
		},
	}
}
