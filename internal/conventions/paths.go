package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default qchat data directory name (relative to home).
	DefaultDataDir = ".qchat"
	// DBFile is the transcript archive filename.
	DBFile = "qchat.db"
	// ConfigFile is the YAML configuration filename.
	ConfigFile = "config.yaml"
	// LogFile is the log filename used while the interactive UI owns the terminal.
	LogFile = "qchat.log"
)

// DataDir returns the qchat data directory for a home directory.
func DataDir(home string) string {
	return filepath.Join(home, DefaultDataDir)
}

// DBPath returns the archive database path inside a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// ConfigPath returns the configuration file path inside a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFile)
}

// LogPath returns the UI log file path inside a data directory.
func LogPath(dataDir string) string {
	return filepath.Join(dataDir, LogFile)
}
