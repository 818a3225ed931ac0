package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localfirst/tripledb/internal/output"
)

var syncStatusCmd = &cobra.Command{
	Use:     "sync-status",
	Short:   "Show whether the duplex sync connection is ready",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		online := client.ConnectionStatus()
		if jsonOutput {
			return output.JSON(map[string]any{"online": online})
		}
		if online {
			fmt.Println("connected")
		} else {
			fmt.Println("disconnected")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncStatusCmd)
}
