package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localfirst/tripledb/internal/output"
	"github.com/localfirst/tripledb/internal/query"
)

var showMarkdownField string

var showCmd = &cobra.Command{
	Use:     "show <entity-id>",
	Short:   "Show one entity's current attributes",
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := client.Query(query.Query{EntityID: args[0]})
		if err != nil {
			output.Error("show: %v", err)
			return err
		}
		if len(res.Entities) == 0 {
			output.Info("no entity with id %s", args[0])
			return nil
		}
		e := res.Entities[0]

		if jsonOutput {
			return output.JSON(e)
		}

		fmt.Print(output.FormatEntityLong(e))

		if showMarkdownField != "" {
			if v, ok := e[showMarkdownField].(string); ok {
				rendered, err := output.RenderMarkdown(v)
				if err != nil {
					return fmt.Errorf("render %s as markdown: %w", showMarkdownField, err)
				}
				fmt.Println()
				fmt.Println(rendered)
			}
		}
		return nil
	},
}

func init() {
	showCmd.Flags().StringVar(&showMarkdownField, "markdown", "", "render this text attribute as markdown")
	rootCmd.AddCommand(showCmd)
}
