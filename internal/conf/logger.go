package conf

import "github.com/Copani/matRad/internal/logger"

// GetLogger returns the global dispatcher. It is fetched on every call so
// it follows the instance installed by Init.
func GetLogger() *logger.Dispatcher {
	return logger.Global()
}
