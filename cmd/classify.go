package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timvw/judge-patrol/internal/artifact"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <artifact>",
	Short: "Print whether an artifact is reviewed as visual or textual",
	Long: `Print the modality judge-patrol would use for an artifact.

This runs offline: no config is read and no judge is called.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readArtifact(cmd, args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), artifact.Classify(text))
		return err
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
