package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ChecksumFile is the manifest written next to config.yaml by `config lock`.
const ChecksumFile = ".checksums"

// lockedFiles are hashed when present in the config directory. config.yaml
// must exist; .env is optional.
var lockedFiles = []string{"config.yaml", ".env"}

// ChecksumManifest records BLAKE3 hashes of the config directory's files.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// IntegrityResult is the outcome of VerifyIntegrity.
type IntegrityResult struct {
	Passed   bool
	Locked   bool
	Errors   []string
	Warnings []string
}

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// ConfigDir returns the directory holding the loaded config file.
func (c *Config) ConfigDir() string {
	if c.SourcePath == "" {
		return ""
	}
	return filepath.Dir(c.SourcePath)
}

// LockConfig hashes the files in configDir and writes the manifest. It
// returns the hashed file names.
func LockConfig(configDir string) ([]string, error) {
	manifest := ChecksumManifest{
		Version:     1,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Hashes:      make(map[string]string),
	}

	for _, name := range lockedFiles {
		path := filepath.Join(configDir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if name == "config.yaml" {
				return nil, fmt.Errorf("nothing to lock: %s not found", path)
			}
			continue
		}
		hash, err := ComputeBlake3Hash(path)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", name, err)
		}
		manifest.Hashes[name] = hash
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checksums: %w", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, ChecksumFile), data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write checksums: %w", err)
	}

	names := make([]string, 0, len(manifest.Hashes))
	for name := range manifest.Hashes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// LoadChecksums reads the manifest from configDir. It returns nil, nil when
// the directory was never locked.
func LoadChecksums(configDir string) (*ChecksumManifest, error) {
	data, err := os.ReadFile(filepath.Join(configDir, ChecksumFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checksums: %w", err)
	}

	var manifest ChecksumManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse checksums: %w", err)
	}
	if manifest.Version != 1 {
		return nil, fmt.Errorf("unsupported checksums version: %d", manifest.Version)
	}
	return &manifest, nil
}

// VerifyIntegrity checks configDir against its manifest. An unlocked
// directory passes with a warning; any mismatch fails.
func VerifyIntegrity(configDir string) (*IntegrityResult, error) {
	result := &IntegrityResult{Passed: true}

	manifest, err := LoadChecksums(configDir)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("no %s manifest in %s; run 'gitevents config lock' to enable integrity verification", ChecksumFile, configDir))
		return result, nil
	}
	result.Locked = true

	for _, name := range lockedFiles {
		path := filepath.Join(configDir, name)
		expected, inManifest := manifest.Hashes[name]

		if _, err := os.Stat(path); os.IsNotExist(err) {
			if inManifest {
				result.Errors = append(result.Errors, fmt.Sprintf("%s is in %s but missing from disk", name, ChecksumFile))
			}
			continue
		}
		if !inManifest {
			result.Errors = append(result.Errors, fmt.Sprintf("%s is not in %s; run 'gitevents config lock'", name, ChecksumFile))
			continue
		}

		actual, err := ComputeBlake3Hash(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to hash %s: %v", name, err))
			continue
		}
		if actual != expected {
			result.Errors = append(result.Errors,
				fmt.Sprintf("hash mismatch for %s; if the edit was intentional run 'gitevents config lock'", name))
		}
	}

	result.Passed = len(result.Errors) == 0
	return result, nil
}
