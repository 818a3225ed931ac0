package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/localfirst/tripledb/internal/reactive"
	"github.com/localfirst/tripledb/internal/watchtui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Watch a live query in a terminal UI",
	Long:    `Subscribes to a query and re-renders whenever its result changes (component C5).`,
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildQuery()
		if err != nil {
			return err
		}

		ch := make(chan reactive.Result, 8)
		sub := client.Subscribe(q, func(r reactive.Result) {
			select {
			case ch <- r:
			default:
				// Drop the stale result rather than block the notifier;
				// the next publish supersedes it anyway.
				<-ch
				ch <- r
			}
		})
		defer sub.Unsubscribe()

		model := watchtui.NewModel(q, ch)
		p := tea.NewProgram(model)
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run watch UI: %w", err)
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&queryEntityType, "type", "", "filter by entity type")
	watchCmd.Flags().StringVar(&queryEntityID, "id", "", "watch a single entity id")
	watchCmd.Flags().StringVar(&queryWhere, "where", "", "JSON object of field filters")
	watchCmd.Flags().StringVar(&queryOrderBy, "order-by", "", "field name, or a JSON order-by spec")
	watchCmd.Flags().IntVar(&queryLimit, "limit", 0, "maximum rows to return")
	watchCmd.Flags().IntVar(&queryOffset, "offset", 0, "rows to skip before limit")
	rootCmd.AddCommand(watchCmd)
}
