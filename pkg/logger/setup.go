package logger

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// SetupLogger installs the default logger. Logs go to stderr so command
// output on stdout stays machine readable.
func SetupLogger(logLevel string, logJSON, logSource bool) Logger {
	cfg := &Config{
		Level:      LogLevel(logLevel),
		Output:     os.Stderr,
		JSON:       logJSON,
		AddSource:  logSource,
		TimeFormat: "15:04:05",
	}
	Init(cfg)
	return GetDefault()
}

// GetLoggerConfig reads the logging flags of cmd, including persistent flags
// declared on its parents.
func GetLoggerConfig(cmd *cobra.Command) (string, bool, bool, error) {
	logLevel, err := flagValue(cmd, "log-level")
	if err != nil {
		return "", false, false, err
	}
	rawJSON, err := flagValue(cmd, "log-json")
	if err != nil {
		return "", false, false, err
	}
	rawSource, err := flagValue(cmd, "log-source")
	if err != nil {
		return "", false, false, err
	}
	logJSON, err := strconv.ParseBool(rawJSON)
	if err != nil {
		return "", false, false, fmt.Errorf("failed to get log-json flag: %w", err)
	}
	logSource, err := strconv.ParseBool(rawSource)
	if err != nil {
		return "", false, false, fmt.Errorf("failed to get log-source flag: %w", err)
	}
	return logLevel, logJSON, logSource, nil
}

func flagValue(cmd *cobra.Command, name string) (string, error) {
	f := cmd.Flag(name)
	if f == nil {
		return "", fmt.Errorf("failed to get %s flag: not defined", name)
	}
	return f.Value.String(), nil
}
