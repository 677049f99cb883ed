package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatooli/chatooli/pkg/presenter"
	"github.com/chatooli/chatooli/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		info := version.Get()
		if asJSON {
			out, err := info.JSON()
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		}
		presenter.Info(info.String())
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "Output as JSON")
}
