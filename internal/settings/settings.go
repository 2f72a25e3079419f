// Package settings loads the installer choices handed over by the calling
// installer.
package settings

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/thus-installer/mkinitcpio/internal/types"
)

// File is the on-disk layout of a settings file.
type File struct {
	types.Settings `yaml:",inline"`

	MountDevices types.MountDevices `yaml:"mount_devices"`
	// BlockLVM is set by installers that already know whether the target
	// sits on LVM. Nil means unknown.
	BlockLVM *bool `yaml:"block_lvm"`
}

// Load reads and decodes the YAML settings file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read settings %s", path)
	}
	return Decode(bytes.NewReader(data))
}

// Decode decodes a YAML settings document. Unknown keys are rejected.
func Decode(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{MountDevices: types.MountDevices{}}, nil
		}
		return nil, errors.Wrap(err, "decode settings")
	}
	if f.MountDevices == nil {
		f.MountDevices = types.MountDevices{}
	}
	return &f, nil
}
