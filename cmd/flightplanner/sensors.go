package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dronefield/flightplanner/internal/config"
	"github.com/dronefield/flightplanner/internal/sensor"
	"github.com/dronefield/flightplanner/internal/util"
)

func newSensorsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sensors",
		Short: "List the sensor profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogue, err := sensor.LoadCatalogue(viper.GetString("sensorsFile"))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tALTITUDE\tSPEED\tSIDE\tFRONT\tDESCRIPTION")
			for _, name := range catalogue.Names() {
				p, _ := catalogue.Lookup(name)
				alt := p.Altitude
				if alt <= 0 {
					alt = config.DefaultGSD * p.SensorFactor
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", p.Name, p.Kind,
					util.FormatNumber(util.Round(alt, 1)), util.FormatNumber(p.FlightSpeed),
					util.FormatNumber(p.SideOverlap), util.FormatNumber(p.FrontOverlap), p.Description)
			}
			return tw.Flush()
		},
	}
}
