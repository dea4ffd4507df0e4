package logger

// LogFileName is the file created under the installation root when file logging is on.
const LogFileName = "matRad.log"

// Config holds the initial dispatcher state.
type Config struct {
	Level      Level  `yaml:"level" json:"level"`             // console verbosity, 1..5
	KeepLog    bool   `yaml:"keep_log" json:"keep_log"`       // capture into the memory buffer
	FilePath   string `yaml:"file_path" json:"file_path"`     // when set, file logging starts enabled
	BufferSize int    `yaml:"buffer_size" json:"buffer_size"` // file writer buffer in bytes
}

// applyConfigDefaults fills zero values so a zero Config is usable.
func applyConfigDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Level == 0 {
		cfg.Level = DefaultLevel
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
}
