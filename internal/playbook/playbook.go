package playbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Op is a step operation.
type Op string

// Step operations.
const (
	OpExecute Op = "execute"
	OpUndo    Op = "undo"
	OpRedo    Op = "redo"
	OpClear   Op = "clear"
	OpExpect  Op = "expect"
)

// Playbook is a parsed playbook document.
type Playbook struct {
	Name string `yaml:"name"`

	// Script is inline Lua source. ScriptFile names a file instead and is
	// resolved relative to the playbook by Load.
	Script     string `yaml:"script,omitempty"`
	ScriptFile string `yaml:"script_file,omitempty"`

	// MaxSize and Strict override the manager settings for the run.
	MaxSize *int  `yaml:"max_size,omitempty"`
	Strict  *bool `yaml:"strict,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step is a single operation in a playbook.
type Step struct {
	Op     Op             `yaml:"op"`
	Action string         `yaml:"action,omitempty"`
	Args   map[string]any `yaml:"args,omitempty"`

	// ExpectError makes a failing execute, undo, redo or clear the
	// expected outcome. ErrorContains narrows it to a message substring.
	ExpectError   bool   `yaml:"expect_error,omitempty"`
	ErrorContains string `yaml:"error_contains,omitempty"`

	// Expectations, checked by an expect step.
	Size     *int           `yaml:"size,omitempty"`
	Position *int           `yaml:"position,omitempty"`
	CanUndo  *bool          `yaml:"can_undo,omitempty"`
	CanRedo  *bool          `yaml:"can_redo,omitempty"`
	Store    map[string]any `yaml:"store,omitempty"`
}

// Parse decodes and validates a playbook. Unknown fields are rejected.
func Parse(data []byte) (*Playbook, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var pb Playbook
	if err := dec.Decode(&pb); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidPlaybook)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlaybook, err)
	}
	if err := pb.Validate(); err != nil {
		return nil, err
	}
	return &pb, nil
}

// Load reads a playbook from path. A relative script_file is read from the
// playbook's directory into Script.
func Load(path string) (*Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading playbook: %w", err)
	}
	pb, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if pb.ScriptFile != "" {
		scriptPath := pb.ScriptFile
		if !filepath.IsAbs(scriptPath) {
			scriptPath = filepath.Join(filepath.Dir(path), scriptPath)
		}
		src, err := os.ReadFile(scriptPath)
		if err != nil {
			return nil, fmt.Errorf("reading script: %w", err)
		}
		pb.ScriptFile = scriptPath
		pb.Script = string(src)
	}
	return pb, nil
}

// ScriptName returns a name for the playbook's script in error messages.
func (pb *Playbook) ScriptName() string {
	if pb.ScriptFile != "" {
		return pb.ScriptFile
	}
	if pb.Name != "" {
		return pb.Name
	}
	return "playbook"
}

// Validate checks step shapes.
func (pb *Playbook) Validate() error {
	var errs []error
	if pb.Script != "" && pb.ScriptFile != "" {
		errs = append(errs, errors.New("script and script_file are mutually exclusive"))
	}
	if pb.MaxSize != nil && *pb.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("max_size must be positive, got %d", *pb.MaxSize))
	}
	if len(pb.Steps) == 0 {
		errs = append(errs, errors.New("no steps"))
	}

	for i, s := range pb.Steps {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", i+1, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPlaybook, errors.Join(errs...))
	}
	return nil
}

func (s Step) validate() error {
	switch s.Op {
	case OpExecute:
		if s.Action == "" {
			return errors.New("execute requires an action")
		}
	case OpUndo, OpRedo, OpClear:
		if s.Action != "" || len(s.Args) > 0 {
			return fmt.Errorf("%s takes no action", s.Op)
		}
	case OpExpect:
		if s.Size == nil && s.Position == nil && s.CanUndo == nil && s.CanRedo == nil && len(s.Store) == 0 {
			return errors.New("expect has nothing to check")
		}
		if s.ExpectError {
			return errors.New("expect cannot use expect_error")
		}
		return nil
	case "":
		return errors.New("missing op")
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}

	if s.Size != nil || s.Position != nil || s.CanUndo != nil || s.CanRedo != nil || len(s.Store) > 0 {
		return fmt.Errorf("%s cannot carry expectations", s.Op)
	}
	if s.ErrorContains != "" && !s.ExpectError {
		return errors.New("error_contains requires expect_error")
	}
	return nil
}
