package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/database"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Manage enrolled people",
}

var peopleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled people",
	Long: `List all enrolled people, or search by display name.

The search is diacritics-insensitive, so "novak" matches "Novák".`,
	Args: cobra.NoArgs,
	RunE: runPeopleList,
}

var peopleShowCmd = &cobra.Command{
	Use:   "show <person-id>",
	Short: "Show a person and their indexed faces",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeopleShow,
}

var peopleDeleteCmd = &cobra.Command{
	Use:   "delete <person-id>",
	Short: "Delete a person, their face vectors and stored images",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeopleDelete,
}

func init() {
	rootCmd.AddCommand(peopleCmd)
	peopleCmd.AddCommand(peopleListCmd)
	peopleCmd.AddCommand(peopleShowCmd)
	peopleCmd.AddCommand(peopleDeleteCmd)

	peopleListCmd.Flags().StringP("query", "q", "", "Filter people by display name")
}

func runPeopleList(cmd *cobra.Command, args []string) error {
	query := mustGetString(cmd, "query")

	rt, err := newRuntime(config.Load())
	if err != nil {
		return err
	}
	defer rt.Close()

	var people []database.Person
	if query != "" {
		people, err = rt.repo.SearchPeople(cmd.Context(), query)
	} else {
		people, err = rt.repo.ListPeople(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("failed to list people: %w", err)
	}

	if len(people) == 0 {
		fmt.Println("No people found.")
		return nil
	}

	for _, person := range people {
		fmt.Printf("%s  %s (%d faces)\n", person.ID, person.DisplayName, person.EmbeddingCount)
	}
	fmt.Printf("\nTotal: %d\n", len(people))
	return nil
}

func runPeopleShow(cmd *cobra.Command, args []string) error {
	personID := args[0]

	rt, err := newRuntime(config.Load())
	if err != nil {
		return err
	}
	defer rt.Close()

	person, err := rt.repo.GetPerson(cmd.Context(), personID)
	if err != nil {
		return fmt.Errorf("failed to load person: %w", err)
	}
	if person == nil {
		return fmt.Errorf("person %s not found", personID)
	}

	fmt.Printf("Person:  %s\n", person.ID)
	fmt.Printf("Name:    %s\n", person.DisplayName)
	fmt.Printf("Created: %s\n", person.CreatedAt.Format("2006-01-02 15:04:05"))
	for key, value := range person.Attributes {
		fmt.Printf("  %s: %s\n", key, value)
	}

	records, err := rt.repo.GetFaceRecords(cmd.Context(), personID)
	if err != nil {
		return fmt.Errorf("failed to load face records: %w", err)
	}
	fmt.Printf("\nFaces (%d):\n", len(records))
	for _, record := range records {
		fmt.Printf("  %s  quality %.2f  %s\n",
			record.EngineFaceID, record.QualityScore, record.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func runPeopleDelete(cmd *cobra.Command, args []string) error {
	personID := args[0]

	rt, err := newRuntime(config.Load())
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.enrollment.RemovePerson(cmd.Context(), personID); err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}

	fmt.Printf("Deleted person %s\n", personID)
	return nil
}
