package logger

// Config holds configuration for the logger.
type Config struct {
	// Level is the minimum level to log (debug, info, warn, error).
	Level string `mapstructure:"level" default:"info"`
	// Format is the output encoding (json, console).
	Format string `mapstructure:"format" default:"console"`
	// Output is an optional log file written in addition to stderr.
	// A "{time}" placeholder is replaced with the start time, giving one file per run.
	Output string `mapstructure:"output"`
	// FileLevel is the minimum level written to Output.
	FileLevel string `mapstructure:"file_level" default:"debug"`
}
