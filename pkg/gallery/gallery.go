// Package gallery ships the sample programs every visitor can load.
package gallery

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/antibyte/turtleterm/pkg/logger"
	"github.com/antibyte/turtleterm/pkg/store"
	"github.com/antibyte/turtleterm/pkg/turtle"

	"gopkg.in/yaml.v3"
)

//go:embed samples.yaml
var samplesYAML []byte

// Sample is one gallery program.
type Sample struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Source      string `yaml:"source"`
}

type catalog struct {
	Samples []Sample `yaml:"samples"`
}

// ProgramSaver stores seeded samples.
type ProgramSaver interface {
	SaveProgram(ctx context.Context, owner, name, source string) (store.Program, error)
}

var (
	ErrNoName        = errors.New("sample without name")
	ErrDuplicateName = errors.New("duplicate sample name")
	ErrInvalidSource = errors.New("sample does not validate")
)

// Load returns the embedded samples.
func Load() ([]Sample, error) {
	return Parse(bytes.NewReader(samplesYAML))
}

// Parse decodes a samples document and checks every sample with the
// syntax validator. Unknown keys are rejected.
func Parse(r io.Reader) ([]Sample, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c catalog
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode samples: %w", err)
	}

	seen := make(map[string]bool, len(c.Samples))
	for i, s := range c.Samples {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrNoName, i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		seen[name] = true
		c.Samples[i].Name = name

		if res := turtle.Validate(s.Source); !res.OK {
			return nil, fmt.Errorf("%w: %s line %d (%s): %s", ErrInvalidSource, name, res.LineNumber, res.Line, res.Reason)
		}
	}
	return c.Samples, nil
}

// Seed saves every sample for owner, replacing older versions with the
// same name. It returns how many samples were stored.
func Seed(ctx context.Context, saver ProgramSaver, owner string, samples []Sample) (int, error) {
	for i, s := range samples {
		if _, err := saver.SaveProgram(ctx, owner, s.Name, s.Source); err != nil {
			return i, fmt.Errorf("failed to seed sample %s: %w", s.Name, err)
		}
		logger.Debug(logger.AreaGallery, "seeded sample %s", s.Name)
	}
	logger.Info(logger.AreaGallery, "seeded %d sample programs for %s", len(samples), owner)
	return len(samples), nil
}
