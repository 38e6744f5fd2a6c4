package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/constants"
)

var importCmd = &cobra.Command{
	Use:   "import <folder-path> [folder-path...]",
	Short: "Bulk enroll people from image folders",
	Long: `Enroll every face image found in one or more folders. The display
name is derived from the file name, so "jan_novak.jpg" enrolls
"jan novak".

By default, only files in the specified folders are imported
(non-recursive). Use -r to search recursively in subdirectories.
Supported formats: jpg, jpeg, png, gif, webp, bmp

Example:
  face-registry import /path/to/faces
  face-registry import -r /path/to/folder1 /path/to/folder2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolP("recursive", "r", false, "Search for images recursively in subdirectories")
	importCmd.Flags().Bool("skip-duplicate-check", false, "Enroll even when a similar face already exists")
}

// isImageFile checks if a file has a supported image extension
func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	supported := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
		".bmp":  true,
	}
	return supported[ext]
}

// displayNameFromFile turns "jan_novak.jpg" into "jan novak".
func displayNameFromFile(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}

// collectImageFiles gathers image paths from the given folders.
func collectImageFiles(folderPaths []string, recursive bool) ([]string, error) {
	var filePaths []string
	for _, folderPath := range folderPaths {
		info, err := os.Stat(folderPath)
		if err != nil {
			return nil, fmt.Errorf("cannot access folder %s: %w", folderPath, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", folderPath)
		}

		if recursive {
			err := filepath.WalkDir(folderPath, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isImageFile(d.Name()) {
					filePaths = append(filePaths, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("cannot walk folder %s: %w", folderPath, err)
			}
			continue
		}

		entries, err := os.ReadDir(folderPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read folder %s: %w", folderPath, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if isImageFile(entry.Name()) {
				filePaths = append(filePaths, filepath.Join(folderPath, entry.Name()))
			}
		}
	}
	return filePaths, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	recursive := mustGetBool(cmd, "recursive")
	skipDuplicateCheck := mustGetBool(cmd, "skip-duplicate-check")

	filePaths, err := collectImageFiles(args, recursive)
	if err != nil {
		return err
	}
	if len(filePaths) == 0 {
		fmt.Println("No image files found in the specified folders.")
		return nil
	}

	fmt.Printf("Found %d image(s) to import from %d folder(s)\n", len(filePaths), len(args))

	rt, err := newRuntime(config.Load())
	if err != nil {
		return err
	}
	defer rt.Close()

	bar := progressbar.NewOptions(len(filePaths),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	var (
		enrolled  int
		rejected  []string
		failed    []string
		resultsMu sync.Mutex
		wg        sync.WaitGroup
		sem       = make(chan struct{}, constants.ImportWorkerPoolSize)
	)

	for _, filePath := range filePaths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			fileName := filepath.Base(path)
			image, err := os.ReadFile(path)
			if err != nil {
				resultsMu.Lock()
				failed = append(failed, fmt.Sprintf("%s: %v", fileName, err))
				resultsMu.Unlock()
				return
			}

			result, err := rt.enrollment.Enroll(cmd.Context(), image,
				displayNameFromFile(path), nil, !skipDuplicateCheck, 0)

			resultsMu.Lock()
			defer resultsMu.Unlock()
			switch {
			case err != nil:
				failed = append(failed, fmt.Sprintf("%s: %v", fileName, err))
			case !result.Success:
				rejected = append(rejected, fmt.Sprintf("%s: %s", fileName, result.Message))
			default:
				enrolled++
			}
		}(filePath)
	}
	wg.Wait()
	fmt.Println()

	for _, msg := range rejected {
		fmt.Printf("Rejected: %s\n", msg)
	}
	for _, msg := range failed {
		fmt.Printf("Failed: %s\n", msg)
	}

	fmt.Printf("\nDone! Enrolled %d of %d image(s)\n", enrolled, len(filePaths))
	if len(failed) > 0 {
		return fmt.Errorf("%d image(s) failed to import", len(failed))
	}
	return nil
}
