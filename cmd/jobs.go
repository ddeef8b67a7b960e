package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scoutline/sourcing-cli/internal/model"
	"github.com/scoutline/sourcing-cli/internal/store"
)

var (
	jobsOwner  string
	jobsStatus string
	jobsLimit  int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List sourcing jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			OwnerID: jobsOwner,
			Status:  model.JobStatus(jobsStatus),
			Limit:   jobsLimit,
		})
		if err != nil {
			return err
		}

		for _, job := range jobs {
			fmt.Printf("%s  %-9s  %-13s  found=%d scraped=%d parsed=%d saved=%d scored=%d\n",
				job.ID, job.Status, job.Stage,
				job.Progress.Found, job.Progress.Scraped, job.Progress.Parsed,
				job.Progress.Saved, job.Progress.Scored)
		}
		return nil
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show one job as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	},
}

func init() {
	jobsCmd.Flags().StringVar(&jobsOwner, "owner", "", "filter by owner id")
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status (created|running|completed|failed)")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 50, "maximum jobs to list")
	jobsCmd.AddCommand(jobsShowCmd)
	rootCmd.AddCommand(jobsCmd)
}
