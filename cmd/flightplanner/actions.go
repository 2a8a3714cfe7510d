package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dronefield/flightplanner/internal/mission"
	"github.com/dronefield/flightplanner/internal/wpml"
)

func newActionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the action kinds and their default parameters",
		Long: `List every action kind with its default parameters. Parameters can be
overridden per kind in the "actions" section of the config file, e.g.

  "actions": { "takePhoto": { "payloadLensIndex": "ir" } }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, action := range mission.Kinds() {
				params := mission.Params(action)
				parts := make([]string, len(params))
				for i, p := range params {
					parts[i] = p.Key + "=" + wpml.FormatValue(p.Value)
				}
				fmt.Fprintf(out, "%s: %s\n", action.Func(), strings.Join(parts, " "))
			}
			return nil
		},
	}
}
