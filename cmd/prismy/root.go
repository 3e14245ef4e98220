package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "prismy",
	Short: "Batch document translation pipeline",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(cancelCmd)
}
