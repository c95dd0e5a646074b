// Package validate implements the configuration check command.
package validate

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ultrasense/ultrasense-go/internal/conf"
)

// Command creates the validate command: load the effective configuration,
// validate it and print it as YAML.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.Validate(); err != nil {
				return fmt.Errorf("configuration invalid: %w", err)
			}

			out, err := yaml.Marshal(settings)
			if err != nil {
				return fmt.Errorf("marshaling settings: %w", err)
			}

			cmd.Println("configuration valid")
			cmd.Print(string(out))
			return nil
		},
	}
}
