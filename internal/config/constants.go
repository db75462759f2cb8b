package config

// Constants defining default values for application configuration
const (
	DefaultDBPath = "./articles.db"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultInterval = 30 // Minutes between refresh cycles

	DefaultCategory = "AI Models"

	DefaultQueryLimit = 200
	MaxQueryLimit     = 1000

	DefaultLogLevel = "info"
)
