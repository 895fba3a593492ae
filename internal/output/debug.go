package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DumpYAML renders v as YAML to w, used for --debug-config's Config
// snapshot and --plan's task list.
func DumpYAML(w io.Writer, label string, v any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("output: marshaling %s: %w", label, err)
	}
	if label != "" {
		fmt.Fprintf(w, "# %s\n", label)
	}
	_, err = w.Write(b)
	return err
}

// PlanEntry is one row of a --plan dump: a task's identity and its
// raw, unexpanded edges, without running anything.
type PlanEntry struct {
	Index   int      `yaml:"index"`
	Desc    string   `yaml:"desc"`
	Inputs  []string `yaml:"inputs,omitempty"`
	Outputs []string `yaml:"outputs,omitempty"`
	Command string   `yaml:"command,omitempty"`
}
