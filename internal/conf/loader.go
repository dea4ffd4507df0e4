package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Copani/matRad/internal/errors"
)

// EnvPrefix prefixes the environment variables that override snapshot
// values, e.g. MATRAD_LOGLEVEL.
const EnvPrefix = "MATRAD"

// envKeys are the top-level scalars that can be overridden from the environment.
var envKeys = []string{"logLevel", "keepLog", "writeLog", "disableGUI"}

// Format is a snapshot file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// ParseFormat accepts a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "yaml", "yml", "":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", errors.Newf("unsupported snapshot format %q", s).
			Component("configuration").
			Category(errors.CategoryValidation).
			Build()
	}
}

// LoadSnapshot reads a snapshot file from fs. The encoding follows the file
// extension. MATRAD_* environment variables override the matching
// top-level values. Keys come back lowercased.
func LoadSnapshot(fs afero.Fs, path string) (Snapshot, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.New(err).
				Component("configuration").
				Category(errors.CategoryConfiguration).
				Context("operation", "bind_env").
				Build()
		}
	}

	if err := v.ReadInConfig(); err != nil {
		category := errors.CategoryFileParsing
		if errors.Is(err, os.ErrNotExist) {
			category = errors.CategoryFileIO
		}
		return nil, errors.New(fmt.Errorf("error reading snapshot: %w", err)).
			Component("configuration").
			Category(category).
			Context("operation", "load_snapshot").
			FileContext(path).
			Build()
	}

	GetLogger().Debug("Loaded configuration snapshot from %s", path)
	return Snapshot(v.AllSettings()), nil
}

// Marshal encodes s in the given format.
func Marshal(s *Settings, format Format) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatTOML:
		data, err = toml.Marshal(s)
	case FormatJSON:
		data, err = json.MarshalIndent(s, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	default:
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("error marshaling settings to %s: %w", format, err)).
			Component("configuration").
			Category(errors.CategoryState).
			Build()
	}
	return data, nil
}

// SaveSnapshot writes s to path, encoded by the file extension. The file is
// written to a temporary sibling first and renamed into place.
func SaveSnapshot(fs afero.Fs, path string, s *Settings) error {
	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}
	data, err := Marshal(s, format)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return snapshotFileError(err, path, "create_directory")
	}

	tempFile, err := afero.TempFile(fs, dir, "snapshot-*"+filepath.Ext(path))
	if err != nil {
		return snapshotFileError(err, path, "create_temp_file")
	}
	tempFileName := tempFile.Name()
	// Removal fails harmlessly once the rename succeeded
	defer func() { _ = fs.Remove(tempFileName) }()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return snapshotFileError(err, path, "write_temp_file")
	}
	if err := tempFile.Close(); err != nil {
		return snapshotFileError(err, path, "close_temp_file")
	}

	if err := fs.Rename(tempFileName, path); err != nil {
		return snapshotFileError(err, path, "rename_temp_file")
	}
	return nil
}

func snapshotFileError(err error, path, operation string) error {
	return errors.New(err).
		Component("configuration").
		Category(errors.CategoryFileIO).
		Context("operation", operation).
		FileContext(path).
		Build()
}
