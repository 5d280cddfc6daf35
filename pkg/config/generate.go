package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/filesystem"
	toml "github.com/pelletier/go-toml/v2"
)

const generatedHeader = `# deltapack settings
#
# Every value below is commented out and shows the default. Uncomment to
# override. Environment variables prefixed DELTAPACK_ win over this file,
# e.g. DELTAPACK_GIT_FROM=v1.2.0.
`

// Marshal renders cfg as TOML
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(false)
	if err := enc.Encode(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to encode settings")
	}
	return buf.Bytes(), nil
}

// GenerateConfigContent returns a settings file with every default value
// commented out
func GenerateConfigContent() (string, error) {
	data, err := Marshal(Defaults())
	if err != nil {
		return "", err
	}
	return generatedHeader + "\n" + commentOutConfigValues(string(data)), nil
}

// WriteConfigFile writes the generated settings file into dir and returns
// its path. An existing file is only replaced when force is set.
func WriteConfigFile(dir string, force bool) (string, error) {
	path := filepath.Join(dir, FileNames[0])
	if _, err := os.Stat(path); err == nil && !force {
		return "", errors.Newf(errors.ErrFileWrite, "%s already exists", path).WithDetail("path", path)
	}

	content, err := GenerateConfigContent()
	if err != nil {
		return "", err
	}
	if err := filesystem.WriteFileAtomic(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// commentOutConfigValues takes the TOML content and comments out all non-comment, non-blank lines
// that contain configuration values (assignments)
func commentOutConfigValues(content string) string {
	lines := strings.Split(content, "\n")
	var result []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			result = append(result, line)
			continue
		}

		// Keep section headers (e.g., [git], [tools]) as-is
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			result = append(result, line)
			continue
		}

		result = append(result, "# "+line)
	}

	return strings.Join(result, "\n")
}
