package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// checkFlagErr panics on a flag lookup error. The mustGet helpers are
// only used for flags registered in init(), so a failed lookup is a
// programming bug, not a runtime condition.
func checkFlagErr(name string, err error) {
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	checkFlagErr(name, err)
	return val
}

func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	checkFlagErr(name, err)
	return val
}

func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	checkFlagErr(name, err)
	return val
}

func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	val, err := cmd.Flags().GetFloat64(name)
	checkFlagErr(name, err)
	return val
}

func mustGetStringSlice(cmd *cobra.Command, name string) []string {
	val, err := cmd.Flags().GetStringSlice(name)
	checkFlagErr(name, err)
	return val
}
