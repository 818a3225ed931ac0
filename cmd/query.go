package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localfirst/tripledb/internal/output"
	"github.com/localfirst/tripledb/internal/query"
)

var (
	queryEntityType string
	queryEntityID   string
	queryWhere      string
	queryOrderBy    string
	queryLimit      int
	queryOffset     int
)

var queryCmd = &cobra.Command{
	Use:     "query",
	Short:   "Evaluate a declarative query once against current state",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildQuery()
		if err != nil {
			return err
		}

		res, err := client.Query(q)
		if err != nil {
			if jsonOutput {
				output.JSONError(output.ErrCodeInvalidInput, err.Error())
				return nil
			}
			output.Error("query: %v", err)
			return err
		}

		if jsonOutput {
			return output.JSON(res)
		}

		if len(res.Aggregates) > 0 {
			for _, row := range res.Aggregates {
				fmt.Printf("%v  %v\n", row.Group, row.Values)
			}
			return nil
		}
		if len(res.Entities) == 0 {
			output.Info("no matching entities")
			return nil
		}
		for _, e := range res.Entities {
			fmt.Println(output.FormatEntityShort(e))
		}
		return nil
	},
}

func buildQuery() (query.Query, error) {
	q := query.Query{
		EntityType: queryEntityType,
		EntityID:   queryEntityID,
		Limit:      queryLimit,
		Offset:     queryOffset,
	}
	if queryWhere != "" {
		var where map[string]any
		if err := json.Unmarshal([]byte(queryWhere), &where); err != nil {
			return query.Query{}, fmt.Errorf("decode --where: %w", err)
		}
		q.Where = where
	}
	if queryOrderBy != "" {
		var orderBy any
		if err := json.Unmarshal([]byte(queryOrderBy), &orderBy); err != nil {
			orderBy = queryOrderBy // plain field name, not JSON
		}
		q.OrderBy = orderBy
	}
	return q, nil
}

func init() {
	queryCmd.Flags().StringVar(&queryEntityType, "type", "", "filter by entity type")
	queryCmd.Flags().StringVar(&queryEntityID, "id", "", "look up a single entity id")
	queryCmd.Flags().StringVar(&queryWhere, "where", "", "JSON object of field filters")
	queryCmd.Flags().StringVar(&queryOrderBy, "order-by", "", "field name, or a JSON order-by spec")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "maximum rows to return")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "rows to skip before limit")
	rootCmd.AddCommand(queryCmd)
}
