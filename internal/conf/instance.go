package conf

import (
	"fmt"
	"os"
	"sync"

	"github.com/Copani/matRad/internal/logger"
)

// The process-wide instance
var (
	instance     *Config
	instanceErr  error
	instanceOnce sync.Once
)

// Init constructs the process-wide configuration with opts on first call
// and installs its dispatcher as the global logger. Later calls return the
// same instance and ignore opts. Call it once at startup before spawning
// goroutines that use the configuration.
func Init(opts ...Option) (*Config, error) {
	instanceOnce.Do(func() {
		instance, instanceErr = New(opts...)
		if instanceErr == nil {
			logger.SetGlobal(instance.Dispatcher)
		}
	})
	return instance, instanceErr
}

// Instance returns the process-wide configuration, constructing it with
// default options if Init was never called.
func Instance() *Config {
	c, err := Init()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing matRad configuration: %v\n", err)
		os.Exit(1)
	}
	return c
}
