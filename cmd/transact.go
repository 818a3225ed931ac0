package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/localfirst/tripledb/internal/output"
	"github.com/localfirst/tripledb/internal/txn"
)

var transactFile string

var transactCmd = &cobra.Command{
	Use:     "transact <operations.json>",
	Short:   "Apply a transaction (a JSON array of operations)",
	Long: `Applies one transaction built from a JSON array of operations, e.g.:

  [{"kind":"add","entityType":"task","data":{"title":"write docs"}}]

Read from --file, or pass "-" to read from stdin.`,
	GroupID: "data",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readOperationsInput(transactFile, args)
		if err != nil {
			return err
		}

		var ops []txn.Operation
		if err := json.Unmarshal(raw, &ops); err != nil {
			return fmt.Errorf("decode operations: %w", err)
		}
		if len(ops) == 0 {
			return fmt.Errorf("no operations to apply")
		}

		result, err := client.Transact(ops...)
		if err != nil {
			if jsonOutput {
				output.JSONError(output.ErrCodeInvalidInput, err.Error())
				return nil
			}
			output.Error("transact: %v", err)
			return err
		}

		if jsonOutput {
			return output.JSON(result)
		}
		output.Success("applied transaction %s (%d operations)", result.TxID, len(ops))
		return nil
	},
}

func readOperationsInput(file string, args []string) ([]byte, error) {
	if file != "" {
		return os.ReadFile(file)
	}
	if len(args) > 0 && args[0] != "-" {
		return []byte(args[0]), nil
	}
	return readAllStdin()
}

func readAllStdin() ([]byte, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return data, nil
}

func init() {
	transactCmd.Flags().StringVarP(&transactFile, "file", "f", "", "read operations from a JSON file")
	rootCmd.AddCommand(transactCmd)
}
