package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"

	codex7err "github.com/codex7/codex7/internal/errors"
)

var projectConfigNames = []string{"codex7.json", "context7.json"}

// LoadProjectConfig reads the first matching codex7.json / context7.json
// under root. A missing file is not an error — nil, nil is returned and
// the caller falls back to defaults. A malformed file is a warning, not
// a fatal error, per the parser's documented failure semantics: the
// caller receives nil config and a wrapped ConfigInvalid error it may
// choose to log and continue past.
func LoadProjectConfig(root string) (*ProjectConfig, error) {
	for _, name := range projectConfigNames {
		p := filepath.Join(root, name)
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, codex7err.ConfigInvalid("malformed "+name, err)
		}
		return &cfg, nil
	}
	return nil, nil
}
