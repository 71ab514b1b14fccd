package config

const (
	defaultAPIBaseURL = "http://localhost:8000/api"

	defaultKafkaTopic = "prems.chat.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			APIBaseURL: defaultAPIBaseURL,
		},
		Record: RecordConfig{
			KafkaTopic: defaultKafkaTopic,
		},
	}
}
