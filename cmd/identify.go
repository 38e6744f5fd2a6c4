package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-registry/internal/config"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <image-path>",
	Short: "Identify a person from a probe image",
	Long: `Resolve a probe image against the enrolled gallery and print the
ranked candidates.

Example:
  face-registry identify probe.jpg
  face-registry identify --max-results 3 --threshold 90 probe.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().Int("max-results", 0, "Maximum candidates to return (0 uses the configured default)")
	identifyCmd.Flags().Float64("threshold", 0, "Minimum similarity 0-100 (0 uses the configured default)")
	identifyCmd.Flags().Bool("no-cache", false, "Bypass the identification result cache")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	imagePath := args[0]
	maxResults := mustGetInt(cmd, "max-results")
	threshold := mustGetFloat64(cmd, "threshold")
	noCache := mustGetBool(cmd, "no-cache")

	image, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("cannot read image %s: %w", imagePath, err)
	}

	rt, err := newRuntime(config.Load())
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.identification.Identify(cmd.Context(), image, maxResults, threshold, !noCache)
	if err != nil {
		return fmt.Errorf("identification failed: %w", err)
	}

	if len(result.Candidates) == 0 {
		fmt.Println(result.Message)
		return nil
	}

	source := "engine"
	if result.CacheHit {
		source = "cache"
	}
	fmt.Printf("Found %d candidate(s) (%s):\n", len(result.Candidates), source)
	for i, candidate := range result.Candidates {
		fmt.Printf("%d. %s (%s)\n", i+1, candidate.DisplayName, candidate.PersonID)
		fmt.Printf("   Similarity: %.1f  Confidence: %.2f\n", candidate.Similarity, candidate.Confidence)
	}
	return nil
}
