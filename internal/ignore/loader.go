package ignore

import (
	"os"

	"github.com/BurntSushi/toml"
)

const (
	// IgnoreFileName is the default name of the ignore file
	IgnoreFileName = ".starforgeignore"
)

// tomlConfig represents the TOML structure of the .starforgeignore file:
//
//	[tables]
//	patterns = ["stg_*", "tmp_*", "!stg_keep"]
//
//	[columns]
//	patterns = ["etl_*", "_loaded_at"]
type tomlConfig struct {
	Tables  sectionConfig `toml:"tables,omitempty"`
	Columns sectionConfig `toml:"columns,omitempty"`
}

type sectionConfig struct {
	Patterns []string `toml:"patterns,omitempty"`
}

// LoadIgnoreFile loads the .starforgeignore file from the current directory
// Returns nil if the file doesn't exist (ignore functionality is optional)
func LoadIgnoreFile() (*IgnoreConfig, error) {
	return LoadIgnoreFileFromPath(IgnoreFileName)
}

// LoadIgnoreFileFromPath loads an ignore file from the specified path
// Returns nil if the file doesn't exist (ignore functionality is optional)
func LoadIgnoreFileFromPath(filePath string) (*IgnoreConfig, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var parsed tomlConfig
	if _, err := toml.DecodeFile(filePath, &parsed); err != nil {
		return nil, err
	}

	return &IgnoreConfig{
		Tables:  parsed.Tables.Patterns,
		Columns: parsed.Columns.Patterns,
	}, nil
}
