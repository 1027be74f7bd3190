// Package pipeline runs check specs in dependency-ordered stages.
package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vertti/presubmit/pkg/proc"
)

var (
	// ErrInvalidPipeline is returned for cyclic, dangling or duplicate definitions.
	// Nothing is launched when it is returned.
	ErrInvalidPipeline = errors.New("invalid pipeline")

	// ErrUnknownCheck is returned when a check is selected by a name that is not defined.
	ErrUnknownCheck = errors.New("unknown check")
)

// CheckSpec is one verification step.
type CheckSpec struct {
	ID           string       // unique within a pipeline, e.g. "test:wicore"
	Command      proc.Command // Dir is relative to the runner's root
	DependsOn    []string     // IDs that must finish (pass or fail) before this starts
	FailOnOutput bool         // a zero exit status with any output is still a failure
}

// Stages partitions specs into layers. Every spec in layer n depends only on specs
// in layers before n. Layers hold indices into specs in definition order.
func Stages(specs []CheckSpec) ([][]int, error) {
	index, err := indexSpecs(specs)
	if err != nil {
		return nil, err
	}

	for _, s := range specs {
		for _, dep := range s.DependsOn {
			if dep == s.ID {
				return nil, fmt.Errorf("%w: %s depends on itself", ErrInvalidPipeline, s.ID)
			}
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("%w: %s depends on undefined check %q", ErrInvalidPipeline, s.ID, dep)
			}
		}
	}

	placed := make([]bool, len(specs))
	remaining := len(specs)
	var stages [][]int

	for remaining > 0 {
		var stage []int
		for i, s := range specs {
			if placed[i] || !depsPlaced(s, index, placed) {
				continue
			}
			stage = append(stage, i)
		}
		if len(stage) == 0 {
			return nil, fmt.Errorf("%w: dependency cycle among %s", ErrInvalidPipeline, strings.Join(unplaced(specs, placed), ", "))
		}
		// Mark after the scan so a stage never contains a spec and its dependency.
		for _, i := range stage {
			placed[i] = true
		}
		remaining -= len(stage)
		stages = append(stages, stage)
	}
	return stages, nil
}

// Validate checks the dependency graph without running anything.
func Validate(specs []CheckSpec) error {
	_, err := Stages(specs)
	return err
}

// Only returns the single spec named id with its dependency edges removed.
func Only(specs []CheckSpec, id string) ([]CheckSpec, error) {
	for _, s := range specs {
		if s.ID == id {
			s.DependsOn = nil
			return []CheckSpec{s}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCheck, id)
}

// Commands returns the command of every spec, in definition order.
func Commands(specs []CheckSpec) []proc.Command {
	out := make([]proc.Command, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Command)
	}
	return out
}

func indexSpecs(specs []CheckSpec) (map[string]int, error) {
	index := make(map[string]int, len(specs))
	for i, s := range specs {
		if strings.TrimSpace(s.ID) == "" {
			return nil, fmt.Errorf("%w: check #%d has no id", ErrInvalidPipeline, i+1)
		}
		if strings.TrimSpace(s.Command.Name) == "" {
			return nil, fmt.Errorf("%w: %s has no command", ErrInvalidPipeline, s.ID)
		}
		if _, dup := index[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate check %q", ErrInvalidPipeline, s.ID)
		}
		index[s.ID] = i
	}
	return index, nil
}

func depsPlaced(s CheckSpec, index map[string]int, placed []bool) bool {
	for _, dep := range s.DependsOn {
		if !placed[index[dep]] {
			return false
		}
	}
	return true
}

func unplaced(specs []CheckSpec, placed []bool) []string {
	var ids []string
	for i, s := range specs {
		if !placed[i] {
			ids = append(ids, s.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
