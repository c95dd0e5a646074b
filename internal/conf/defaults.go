// defaults.go: viper defaults for all settings.
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Acquisition and analysis constants. The spectrogram values must match the
// classifier's training configuration exactly: window 2048 with overlap 1024
// over a 20000-sample conditioned waveform yields the 1025x18 tensor the
// model expects.
const (
	DefaultFrameSizeSamples = 25000   // int16 samples per data block
	DefaultSampleRate       = 1953125 // Hz, board ADC rate
	DefaultWindowLength     = 2048
	DefaultOverlap          = 1024
	DefaultLeadTrim         = 5000 // acquisition ramp-up transient
	DefaultMinWaveform      = 20000

	// DefaultLEDOnCommand and DefaultLEDOffCommand poke the board's LED
	// register through the vendor monitor utility.
	DefaultLEDOnCommand  = "/opt/redpitaya/bin/monitor 0x40000030 0x80"
	DefaultLEDOffCommand = "/opt/redpitaya/bin/monitor 0x40000030 0x0"
)

// setDefaultConfig registers the default configuration values with viper.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "UltraSense")
	viper.SetDefault("main.loglevel", "info")
	viper.SetDefault("main.logpath", "")

	viper.SetDefault("sensor.host", "169.254.148.148")
	viper.SetDefault("sensor.dataport", 61231)
	viper.SetDefault("sensor.framesizesamples", DefaultFrameSizeSamples)
	viper.SetDefault("sensor.readtimeout", 2*time.Second)
	viper.SetDefault("sensor.timeoutgracecount", 5)
	viper.SetDefault("sensor.handshaketimeout", 5*time.Second)

	viper.SetDefault("detection.distancethresholdcm", 10.0)
	viper.SetDefault("detection.timerdurationseconds", 15.0)
	viper.SetDefault("detection.targetsignalspersecond", 2.0)
	viper.SetDefault("detection.confidencemargin", 0.85)
	viper.SetDefault("detection.modelpath", "models/presence.tflite")
	viper.SetDefault("detection.usexnnpack", true)

	viper.SetDefault("spectrogram.samplerate", DefaultSampleRate)
	viper.SetDefault("spectrogram.windowlength", DefaultWindowLength)
	viper.SetDefault("spectrogram.overlap", DefaultOverlap)
	viper.SetDefault("spectrogram.leadtrim", DefaultLeadTrim)
	viper.SetDefault("spectrogram.minwaveform", DefaultMinWaveform)

	viper.SetDefault("actuator.enabled", true)
	viper.SetDefault("actuator.host", "") // empty means sensor.host
	viper.SetDefault("actuator.port", 22)
	viper.SetDefault("actuator.user", "root")
	viper.SetDefault("actuator.password", "root")
	viper.SetDefault("actuator.oncommand", DefaultLEDOnCommand)
	viper.SetDefault("actuator.offcommand", DefaultLEDOffCommand)
	viper.SetDefault("actuator.commandtimeout", 5*time.Second)

	viper.SetDefault("realtime.mqtt.enabled", false)
	viper.SetDefault("realtime.mqtt.broker", "")
	viper.SetDefault("realtime.mqtt.topic", "ultrasense/detections")
	viper.SetDefault("realtime.mqtt.username", "")
	viper.SetDefault("realtime.mqtt.password", "")
	viper.SetDefault("realtime.mqtt.retain", false)

	viper.SetDefault("realtime.telemetry.enabled", false)
	viper.SetDefault("realtime.telemetry.listen", "0.0.0.0:8090")
}
