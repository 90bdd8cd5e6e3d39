package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the PDF MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// PDF configuration
	PDFDirectory    string
	OutputDirectory string // merge results; empty writes into PDFDirectory

	// Merge defaults, overridable per request
	Tagged      bool // keep the logical structure of tagged inputs
	MergeFields bool // join same-named form fields into one form

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:         ModeStdio, // Default to stdio mode for MCP compatibility
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: currentDir,
		Version:      "1.0.0",
		ServerName:   "mcp-pdf-merger",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
		Tagged:       true,
		MergeFields:  true,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	for _, dir := range []*string{&cfg.PDFDirectory, &cfg.OutputDirectory} {
		if *dir == "" {
			continue
		}
		if expandedPath, err := filepath.Abs(*dir); err == nil {
			*dir = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("MCP_PDF")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Define flags with Viper
	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("output-dir", cfg.OutputDirectory)
	viper.SetDefault("tagged", cfg.Tagged)
	viper.SetDefault("merge-fields", cfg.MergeFields)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing input PDF files")
	pflag.String("output-dir", cfg.OutputDirectory, "Directory for merged PDF files (defaults to --dir)")
	pflag.Bool("tagged", cfg.Tagged, "Keep the logical structure of tagged inputs")
	pflag.Bool("merge-fields", cfg.MergeFields, "Join same-named form fields of the inputs into one form")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("dir", pflag.Lookup("dir"))
	_ = viper.BindPFlag("output-dir", pflag.Lookup("output-dir"))
	_ = viper.BindPFlag("tagged", pflag.Lookup("tagged"))
	_ = viper.BindPFlag("merge-fields", pflag.Lookup("merge-fields"))
	_ = viper.BindPFlag("log-level", pflag.Lookup("log-level"))
	_ = viper.BindPFlag("max-file-size", pflag.Lookup("max-file-size"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Merger - A Model Context Protocol server for merging PDF files\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs                     "+
			"# stdio mode with custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/pdfs       # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081 # server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_MODE        Server mode\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_HOST        Server host\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_PORT        Server port\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_DIR         PDF directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_OUTPUT_DIR    Output directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_TAGGED        Keep logical structure (true/false)\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_MERGE_FIELDS  Merge form fields (true/false)\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_LOG_LEVEL     Log level\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_MAX_FILE_SIZE Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.OutputDirectory = viper.GetString("output-dir")
	cfg.Tagged = viper.GetBool("tagged")
	cfg.MergeFields = viper.GetBool("merge-fields")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate PDF directory
	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// A missing PDF directory is allowed so placeholder paths such as
	// ${workspaceRoot} survive until the client resolves them
	if info, err := os.Stat(c.PDFDirectory); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("PDF directory %s is not a directory", c.PDFDirectory)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	if c.OutputDirectory != "" {
		if err := ensureDirectory(c.OutputDirectory); err != nil {
			return fmt.Errorf("cannot use output directory %s: %w", c.OutputDirectory, err)
		}
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

func ensureDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, DefaultDirPerm)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	return nil
}

// OutputDir returns the directory merge results are written to
func (c *Config) OutputDir() string {
	if c.OutputDirectory != "" {
		return c.OutputDirectory
	}
	return c.PDFDirectory
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, OutputDirectory: %s, "+
		"LogLevel: %s, MaxFileSize: %d, Tagged: %t, MergeFields: %t}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.OutputDir(), c.LogLevel, c.MaxFileSize, c.Tagged, c.MergeFields)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
