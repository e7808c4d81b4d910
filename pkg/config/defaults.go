package config

const (
	defaultServeListen   = ":8787"
	defaultClientBaseURL = "http://localhost:8787"
	defaultClientTimeout = "30s"

	// HistoryFile is the default history database name inside the dotdir.
	HistoryFile = "history.db"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			BaseURL: defaultClientBaseURL,
			Timeout: defaultClientTimeout,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Serve: ServeConfig{
			Listen: defaultServeListen,
		},
		UI: UIConfig{
			Markdown: true,
		},
	}
}
