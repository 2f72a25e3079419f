// Package config reads the installer configuration file.
package config

import (
	"github.com/cockroachdb/errors"
	"gopkg.in/ini.v1"
)

// DefaultPath is where the live medium ships the installer configuration.
const DefaultPath = "/etc/thus.conf"

const (
	installSection = "install"
	kernelKey      = "KERNEL"
)

// ErrMissingKey is returned when a required key is absent.
var ErrMissingKey = errors.New("missing configuration key")

// Config holds the values the mkinitcpio step needs from the installer
// configuration.
type Config struct {
	// Kernel is the kernel package name, used as the mkinitcpio preset.
	Kernel string
}

// Load parses the INI file at path.
func Load(path string) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return fromFile(f)
}

// Parse parses INI data held in memory.
func Parse(data []byte) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		SkipUnrecognizableLines: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "parse configuration")
	}
	return fromFile(f)
}

func fromFile(f *ini.File) (*Config, error) {
	sec, err := f.GetSection(installSection)
	if err != nil {
		return nil, errors.Wrapf(ErrMissingKey, "section [%s]", installSection)
	}
	if !sec.HasKey(kernelKey) {
		return nil, errors.Wrapf(ErrMissingKey, "[%s] %s", installSection, kernelKey)
	}
	kernel := sec.Key(kernelKey).String()
	if kernel == "" {
		return nil, errors.Wrapf(ErrMissingKey, "[%s] %s is empty", installSection, kernelKey)
	}
	return &Config{Kernel: kernel}, nil
}
