package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/leafshift/pkg/history"
)

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversion attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := c.newHistory(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printInfo("No conversions recorded")
				return nil
			}

			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = historyRow(e)
			}
			printTable([]string{"Time", "File", "Direction", "Beams", "CPs", "Result"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "number of entries to show")

	return cmd
}

func historyRow(e history.Entry) []string {
	direction := "-"
	if e.Source != "" {
		direction = fmt.Sprintf("%s -> %s", e.Source, e.Target)
	}
	result := "ok"
	switch {
	case !e.OK():
		result = string(e.Code)
	case len(e.Warnings) > 0:
		result = fmt.Sprintf("ok, %d warnings", len(e.Warnings))
	}
	if e.CacheHit {
		result += " (cached)"
	}
	return []string{
		e.Time.Local().Format("2006-01-02 15:04:05"),
		e.InputName,
		direction,
		strconv.Itoa(e.Beams),
		strconv.Itoa(e.ControlPoints),
		result,
	}
}
