package log

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Options configures NewLogger.
type Options struct {
	Name          string   `json:"name,omitempty" mapstructure:"name"`
	Level         string   `json:"level,omitempty" mapstructure:"level"`
	Format        string   `json:"format,omitempty" mapstructure:"format"`
	DisableCaller bool     `json:"disable-caller,omitempty" mapstructure:"disable-caller"`
	OutputPaths   []string `json:"output-paths,omitempty" mapstructure:"output-paths"`
}

// NewOptions returns the defaults: info level, json to stderr.
func NewOptions() *Options {
	return &Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stderr"},
	}
}

// Validate checks the format and level.
func (o *Options) Validate() []error {
	var errs []error
	if o.Format != "json" && o.Format != "console" {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be json or console", o.Format))
	}
	switch o.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q", o.Level))
	}
	return errs
}

// AddFlags registers the logging flags on fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Name, "log.name", o.Name, "Logger name added to every entry.")
	fs.StringVar(&o.Level, "log.level", o.Level, "Minimum log level: debug, info, warn or error.")
	fs.StringVar(&o.Format, "log.format", o.Format, "Log format: json or console.")
	fs.BoolVar(&o.DisableCaller, "log.disable-caller", o.DisableCaller, "Do not annotate entries with the calling file and line.")
	fs.StringSliceVar(&o.OutputPaths, "log.output-paths", o.OutputPaths, "Where to write logs: stdout, stderr or file paths.")
}
