package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runOwner         string
	runDescription   string
	runDescFile      string
	runMaxCandidates int
	runJobID         string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sourcing pipeline for a job description",
	Long:  "Creates a sourcing job from a job description and runs it to completion, or resumes an existing job by id.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, st, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		jobID := runJobID
		if jobID == "" {
			description := runDescription
			if runDescFile != "" {
				data, err := os.ReadFile(runDescFile)
				if err != nil {
					return eris.Wrapf(err, "read description file %s", runDescFile)
				}
				description = string(data)
			}
			if description == "" {
				return eris.New("either --description, --description-file, or --job is required")
			}

			maxCandidates := runMaxCandidates
			if maxCandidates <= 0 {
				maxCandidates = cfg.Pipeline.MaxCandidates
			}

			job, err := st.CreateJob(ctx, runOwner, description, maxCandidates)
			if err != nil {
				return eris.Wrap(err, "create job")
			}
			jobID = job.ID
			zap.L().Info("job created", zap.String("job_id", jobID))
		}

		if err := p.Run(ctx, jobID); err != nil {
			return eris.Wrapf(err, "run job %s", jobID)
		}

		job, err := st.GetJob(ctx, jobID)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	},
}

func init() {
	runCmd.Flags().StringVar(&runOwner, "owner", "default", "owner id the job belongs to")
	runCmd.Flags().StringVar(&runDescription, "description", "", "raw job description text")
	runCmd.Flags().StringVar(&runDescFile, "description-file", "", "path to a file with the job description")
	runCmd.Flags().IntVar(&runMaxCandidates, "max-candidates", 0, "target number of contactable candidates (default from config)")
	runCmd.Flags().StringVar(&runJobID, "job", "", "resume an existing job by id instead of creating one")
	rootCmd.AddCommand(runCmd)
}
