package engine

type ApplicationConfig struct {
	// The application name, used in logs.
	Name string
	// Backbuffer width.
	Width uint32
	// Backbuffer height.
	Height uint32
	// One of debug, info, warn, error.
	LogLevel string
}
