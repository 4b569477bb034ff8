package common

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// EndpointProfile names one extraction endpoint, so deployments can keep
// staging and production targets in a single checked-in file and select
// one by name.
type EndpointProfile struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type endpointsConfig struct {
	Endpoints []EndpointProfile `yaml:"endpoints"`
}

// LoadEndpointProfiles reads the endpoint profile file. Relative paths
// resolve against the working directory.
func LoadEndpointProfiles(profilesFile string) ([]EndpointProfile, error) {
	var profilesPath string
	if filepath.IsAbs(profilesFile) {
		profilesPath = profilesFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		profilesPath = filepath.Join(wd, profilesFile)
	}

	data, err := os.ReadFile(profilesPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", profilesFile, err)
	}

	var config endpointsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", profilesFile, err)
	}

	for i, profile := range config.Endpoints {
		if profile.Name == "" {
			return nil, fmt.Errorf("endpoint at index %d missing name", i)
		}
		if profile.URL == "" {
			return nil, fmt.Errorf("endpoint at index %d missing url", i)
		}
	}

	return config.Endpoints, nil
}

// ResolveEndpoint returns the URL for the named profile.
func ResolveEndpoint(profilesFile, name string) (string, error) {
	profiles, err := LoadEndpointProfiles(profilesFile)
	if err != nil {
		return "", err
	}
	for _, profile := range profiles {
		if profile.Name == name {
			return profile.URL, nil
		}
	}
	return "", fmt.Errorf("no endpoint profile named %q in %s", name, profilesFile)
}
