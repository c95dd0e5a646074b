// Package cmd assembles the command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ultrasense/ultrasense-go/cmd/realtime"
	"github.com/ultrasense/ultrasense-go/cmd/validate"
	"github.com/ultrasense/ultrasense-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ultrasense",
		Short:   "UltraSense presence detection CLI",
		Version: version,
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		realtime.Command(settings),
		validate.Command(settings),
	)

	return rootCmd
}

// setupFlags defines the global flags and binds them into viper so command
// line arguments take precedence over config file values.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	flags := rootCmd.PersistentFlags()

	flags.BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	flags.StringVar(&settings.Sensor.Host, "host", viper.GetString("sensor.host"), "Acquisition board address")
	flags.IntVar(&settings.Sensor.DataPort, "port", viper.GetInt("sensor.dataport"), "Acquisition board UDP data port")
	flags.Float64VarP(&settings.Detection.DistanceThresholdCm, "threshold", "t", viper.GetFloat64("detection.distancethresholdcm"), "Activity gate distance threshold in cm")
	flags.Float64Var(&settings.Detection.TimerDurationSeconds, "hold", viper.GetFloat64("detection.timerdurationseconds"), "Actuator hold duration in seconds")
	flags.Float64Var(&settings.Detection.TargetSignalsPerSecond, "rate", viper.GetFloat64("detection.targetsignalspersecond"), "Target processed signals per second")
	flags.StringVar(&settings.Detection.ModelPath, "model", viper.GetString("detection.modelpath"), "Path to the TFLite classifier model")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}
