package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutline/sourcing-cli/internal/export"
	"github.com/scoutline/sourcing-cli/internal/store"
)

var (
	candidatesScored   bool
	candidatesMinScore int
	candidatesSort     string
	candidatesLimit    int
	candidatesJSON     bool
	candidatesExport   string
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates <job-id>",
	Short: "List a job's candidates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		candidates, err := st.ListCandidates(ctx, store.CandidateFilter{
			JobID:      args[0],
			OnlyScored: candidatesScored,
			MinScore:   candidatesMinScore,
			SortBy:     candidatesSort,
			Limit:      candidatesLimit,
		})
		if err != nil {
			return err
		}

		if candidatesExport != "" {
			if err := export.CandidatesXLSX(candidates, candidatesExport); err != nil {
				return err
			}
			zap.L().Info("candidates exported",
				zap.String("job_id", args[0]),
				zap.String("path", candidatesExport),
				zap.Int("count", len(candidates)))
			return nil
		}

		if candidatesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(candidates)
		}

		for _, c := range candidates {
			score := "-"
			if c.Score != nil {
				score = fmt.Sprintf("%d", c.Score.Total)
			}
			fmt.Printf("%-4s  %-30s  %-30s  %s\n", score, c.FullName, c.Title, c.ProfileURL)
		}
		return nil
	},
}

func init() {
	candidatesCmd.Flags().BoolVar(&candidatesScored, "scored", false, "only scored candidates")
	candidatesCmd.Flags().IntVar(&candidatesMinScore, "min-score", 0, "minimum total score")
	candidatesCmd.Flags().StringVar(&candidatesSort, "sort", "score", "sort order: score or created")
	candidatesCmd.Flags().IntVar(&candidatesLimit, "limit", 100, "maximum candidates to list")
	candidatesCmd.Flags().BoolVar(&candidatesJSON, "json", false, "output JSON instead of a table")
	candidatesCmd.Flags().StringVar(&candidatesExport, "export", "", "write an .xlsx file to this path instead of printing")
	rootCmd.AddCommand(candidatesCmd)
}
