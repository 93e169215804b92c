package tool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultKeymap maps friendly key names to cliclick key commands. A keymap
// file merges over these, so users only override what they need.
var defaultKeymap = map[string]string{
	"Return":    "kp:return",
	"Enter":     "kp:enter",
	"Escape":    "kp:esc",
	"Tab":       "kp:tab",
	"Space":     "kp:space",
	"Delete":    "kp:delete",
	"BackSpace": "kp:delete",
	"Up":        "kp:arrow-up",
	"Down":      "kp:arrow-down",
	"Left":      "kp:arrow-left",
	"Right":     "kp:arrow-right",
	"Home":      "kp:home",
	"End":       "kp:end",
	"Page_Up":   "kp:page-up",
	"Page_Down": "kp:page-down",
	"F1":        "kp:f1",
	"F2":        "kp:f2",
	"F3":        "kp:f3",
	"F4":        "kp:f4",
	"F5":        "kp:f5",
}

// LoadKeymap returns the default keymap merged with the overrides in path.
// An empty path returns the defaults unchanged.
func LoadKeymap(path string) (map[string]string, error) {
	keymap := make(map[string]string, len(defaultKeymap))
	for k, v := range defaultKeymap {
		keymap[k] = v
	}
	if path == "" {
		return keymap, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keymap %s: %w", path, err)
	}
	overrides := make(map[string]string)
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse keymap %s: %w", path, err)
	}
	for k, v := range overrides {
		keymap[k] = v
	}
	return keymap, nil
}
