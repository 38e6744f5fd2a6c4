package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-registry/internal/config"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <image-path>",
	Short: "Enroll a person from a face image",
	Long: `Enroll a new person into the identity gallery from a face image.

The image is checked against the quality gate and searched for
duplicates before anything is written. Attributes are free-form
key=value pairs stored with the identity.

Example:
  face-registry enroll --name "Jan Novak" photo.jpg
  face-registry enroll --name "Jan Novak" --attr department=engineering photo.jpg
  face-registry enroll --name "Jan Novak" --skip-duplicate-check photo.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("name", "", "Display name of the person (required)")
	enrollCmd.Flags().StringSlice("attr", nil, "Attribute as key=value, repeatable")
	enrollCmd.Flags().Bool("skip-duplicate-check", false, "Enroll even when a similar face already exists")
	enrollCmd.Flags().Float64("duplicate-threshold", 0, "Similarity cutoff for the duplicate check (0 = configured default)")
	_ = enrollCmd.MarkFlagRequired("name")
}

// parseAttributes splits repeated key=value flags into a map.
func parseAttributes(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid attribute %q, expected key=value", pair)
		}
		attrs[key] = value
	}
	return attrs, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	imagePath := args[0]
	displayName := mustGetString(cmd, "name")
	skipDuplicateCheck := mustGetBool(cmd, "skip-duplicate-check")
	duplicateThreshold := mustGetFloat64(cmd, "duplicate-threshold")

	attrs, err := parseAttributes(mustGetStringSlice(cmd, "attr"))
	if err != nil {
		return err
	}

	image, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("cannot read image %s: %w", imagePath, err)
	}

	rt, err := newRuntime(config.Load())
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.enrollment.Enroll(cmd.Context(), image, displayName, attrs, !skipDuplicateCheck, duplicateThreshold)
	if err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}

	if !result.Success {
		fmt.Printf("Rejected: %s\n", result.Message)
		if result.Duplicate != nil {
			fmt.Printf("  Existing person: %s (similarity %.1f)\n",
				result.Duplicate.PersonID, result.Duplicate.Similarity)
		}
		if result.Quality != nil {
			for _, reason := range result.Quality.Reasons {
				fmt.Printf("  %s\n", reason)
			}
		}
		os.Exit(1)
	}

	fmt.Printf("Enrolled %s\n", displayName)
	fmt.Printf("  Person ID: %s\n", result.PersonID)
	fmt.Printf("  Face ID:   %s\n", result.FaceID)
	fmt.Printf("  Quality:   %.2f\n", result.QualityScore)
	return nil
}
