package utils

const (
	// ApplicationName names the binary in help output and configuration paths.
	ApplicationName = "rptree"
	// GlobalConfigDirectoryName is the directory under the user's home holding the global configuration.
	GlobalConfigDirectoryName = "." + ApplicationName
	// ConfigFileName is the file name of the global configuration.
	ConfigFileName = "config.yaml"
	// LocalConfigFileName is the configuration file looked up in the working directory.
	LocalConfigFileName = "." + ApplicationName + ".yaml"

	// LoggerInitializationFailedMessageFormat reports a logger that could not be built.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ErrorLogFormat prefixes a fatal error with its kind.
	ErrorLogFormat = "%s: %v"
)
