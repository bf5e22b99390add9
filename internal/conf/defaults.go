// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "fieldcut")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "fieldcut.log")

	viper.SetDefault("detection.mode", "auto")
	viper.SetDefault("detection.threshold", "auto")
	viper.SetDefault("detection.prepadms", 0.0)
	viper.SetDefault("detection.postpadms", 0.0)
	viper.SetDefault("detection.mergegapms", 0.0)
	viper.SetDefault("detection.mindurms", 100.0)
	viper.SetDefault("detection.maxdurms", 60000.0)
	viper.SetDefault("detection.mingapms", 1000.0)
	viper.SetDefault("detection.nomergeafterpadding", true)
	viper.SetDefault("detection.maxsamples", 256)
	viper.SetDefault("detection.samplespread", true)
	viper.SetDefault("detection.samplespreadmode", "strict")
	viper.SetDefault("detection.resolveoverlaps", "")
	viper.SetDefault("detection.overlapiou", 0.0)

	viper.SetDefault("detection.vad.aggressiveness", 3)
	viper.SetDefault("detection.vad.framedurationms", 30)
	viper.SetDefault("detection.vad.mindurationms", 400.0)
	viper.SetDefault("detection.vad.lowfreq", 200.0)
	viper.SetDefault("detection.vad.highfreq", 4500.0)

	viper.SetDefault("preprocess.denoise", "afftdn")
	viper.SetDefault("preprocess.hp", 20.0)
	viper.SetDefault("preprocess.lp", 20000.0)
	viper.SetDefault("preprocess.nr", 12.0)
	viper.SetDefault("preprocess.analysissr", 16000)

	viper.SetDefault("resolve.tolerancems", 5.0)
	viper.SetDefault("resolve.defaultbehavior", "discard_duplicates")

	viper.SetDefault("output.dir", "output")
	viper.SetDefault("output.format", "table")
	viper.SetDefault("output.maxworkers", 0)
}
