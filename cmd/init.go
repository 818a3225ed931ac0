package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localfirst/tripledb/internal/output"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Initialize the local persistence directory",
	Long:    `Opens (creating if absent) the local triple store at --dir.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		// openClient already ran in PersistentPreRunE and created --dir.
		output.Success("initialized store at %s", persistenceDir)
		fmt.Printf("app id: %s\n", appID)
		if serverURL != "" {
			fmt.Printf("sync server: %s\n", serverURL)
		} else {
			fmt.Println("sync disabled (pass --server to enable)")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
