// Package realtime implements the command that runs the detection pipeline.
package realtime

import (
	"github.com/spf13/cobra"

	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/pipeline"
)

// Command creates the realtime detection command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Run realtime presence detection",
		Long:  "Connect to the acquisition board and run the detection pipeline until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.RunRealtime(settings)
		},
	}
	return cmd
}
