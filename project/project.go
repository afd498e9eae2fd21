// Package project parses the MLproject-style manifest that declares the
// packaged entry points and their parameters.
package project

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parameter declares one entry-point parameter.
type Parameter struct {
	Type    string `yaml:"type"`
	Default string `yaml:"default"`
}

// EntryPoint is one named command of the project.
type EntryPoint struct {
	Parameters map[string]Parameter `yaml:"parameters"`
	Command    string               `yaml:"command"`
}

// DockerEnv names the container image the project runs in.
type DockerEnv struct {
	Image string `yaml:"image"`
}

// Project is the parsed manifest.
type Project struct {
	Name        string                `yaml:"name"`
	DockerEnv   DockerEnv             `yaml:"docker_env"`
	EntryPoints map[string]EntryPoint `yaml:"entry_points"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("project: read %s: %w", path, err)
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("project: parse %s: %w", path, err)
	}
	return &p, nil
}

// EntryPoint returns the named entry point.
func (p *Project) EntryPoint(name string) (EntryPoint, error) {
	ep, ok := p.EntryPoints[name]
	if !ok {
		return EntryPoint{}, fmt.Errorf("project: no entry point %q", name)
	}
	return ep, nil
}

// DefaultFor returns the declared default of a parameter, with ok=false
// when the parameter is not declared or has no default.
func (e EntryPoint) DefaultFor(param string) (string, bool) {
	p, ok := e.Parameters[param]
	if !ok || p.Default == "" {
		return "", false
	}
	return p.Default, true
}
