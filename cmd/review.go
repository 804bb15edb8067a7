package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/judge-patrol/internal/artifact"
	"github.com/timvw/judge-patrol/internal/model"
)

var (
	flagCriteria     string
	flagIntelligence string
)

var reviewCmd = &cobra.Command{
	Use:   "review <artifact>",
	Short: "Review one artifact against an acceptance criterion",
	Long: `Review a single artifact and print the verdict as JSON.

The artifact is either literal text or a path to a .png/.jpg/.jpeg
screenshot. Pass "-" to read the text from stdin.

Exit codes: 0 when the judge passes the artifact, 1 when it fails it,
2 on any error (bad input, unwired route, unreachable or malformed judge).`,
	Example: `  judge-patrol review "Welcome to Arcology Builder!" --criteria "Message uses a warm, conversational tone"
  judge-patrol review tmp/dashboard.png --criteria "Layout demonstrates clear visual hierarchy" --intelligence smart
  git log -1 --format=%B | judge-patrol review - --criteria "Commit message explains why"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readArtifact(cmd, args[0])
		if err != nil {
			return err
		}

		ctx, rt, closeFn, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		req := model.ReviewRequest{
			Criteria:     flagCriteria,
			Artifact:     text,
			Intelligence: model.Intelligence(flagIntelligence),
		}

		start := time.Now()
		result, err := rt.engine.Review(ctx, req)
		if err != nil {
			return err
		}

		tier, _ := model.ParseIntelligence(flagIntelligence)
		modality := artifact.Classify(text)
		record := model.ReviewRecord{
			ReviewResult: *result,
			Modality:     modality,
			Intelligence: tier,
			DurationMs:   time.Since(start).Milliseconds(),
			ReviewedAt:   time.Now().UTC(),
		}
		if j := rt.engine.Judge(modality, tier); j != nil {
			record.Provider = j.Provider()
			record.Model = j.Model()
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(record); err != nil {
			return err
		}

		if !result.Pass {
			return errVerdictFailed
		}
		return nil
	},
}

// readArtifact returns the artifact argument, or stdin when it is "-".
func readArtifact(cmd *cobra.Command, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func init() {
	reviewCmd.Flags().StringVarP(&flagCriteria, "criteria", "c", "", "acceptance criterion in natural language (required)")
	reviewCmd.Flags().StringVarP(&flagIntelligence, "intelligence", "i", "fast", "judge tier: fast, smart")
	_ = reviewCmd.MarkFlagRequired("criteria")
	rootCmd.AddCommand(reviewCmd)
}
