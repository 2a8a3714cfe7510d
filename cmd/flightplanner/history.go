package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dronefield/flightplanner/internal/config"
	"github.com/dronefield/flightplanner/internal/database"
	"github.com/dronefield/flightplanner/internal/util"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the missions recorded in the catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sensorName, _ := cmd.Flags().GetString("sensor")
			limit, _ := cmd.Flags().GetInt("limit")

			db := database.NewManager(config.GetDBConfig(), a.zlog)
			if err := db.Connect(); err != nil {
				return err
			}
			defer db.Close()
			if err := db.Setup(); err != nil {
				return err
			}
			records, err := db.List(sensorName, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tSENSOR\tPATTERN\tWAYPOINTS\tDISTANCE\tDURATION\tPATH")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n", r.ID,
					r.CreatedAt.UTC().Format(time.RFC3339), r.Sensor, r.Pattern, r.Waypoints,
					util.FormatNumber(r.Distance), util.FormatNumber(r.Duration), r.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("sensor", "", "only list missions of this sensor profile")
	cmd.Flags().Int("limit", 20, "maximum number of missions, 0 for all")
	return cmd
}
