package types

import (
	"slices"
	"strings"
)

// Arch is the machine name reported by uname(2), e.g. "x86_64".
type Arch string

const (
	ArchX86_64 Arch = "x86_64"
	ArchI686   Arch = "i686"
)

func (a Arch) String() string {
	return string(a)
}

// Settings are the installer choices relevant for the initramfs. They are
// owned by the calling installer and only read here.
type Settings struct {
	UseLUKS bool   `yaml:"use_luks"`
	UseLVM  bool   `yaml:"use_lvm"`
	F2FS    bool   `yaml:"f2fs"`
	Btrfs   bool   `yaml:"btrfs"`
	Locale  string `yaml:"locale"`
}

// MountDevices maps mount targets ("/", "/boot", "swap", ...) to block devices.
type MountDevices map[string]string

// HasSwap reports whether a swap target is among the mount devices.
func (m MountDevices) HasSwap() bool {
	_, ok := m["swap"]
	return ok
}

// Plan is the ordered set of hooks and preloaded kernel modules written to
// mkinitcpio.conf. Order is significant for Hooks.
type Plan struct {
	Hooks   []string
	Modules []string
}

// HooksLine renders the HOOKS assignment as written to mkinitcpio.conf.
func (p Plan) HooksLine() string {
	return `HOOKS="` + strings.Join(p.Hooks, " ") + `"`
}

// ModulesLine renders the MODULES assignment as written to mkinitcpio.conf.
func (p Plan) ModulesLine() string {
	return `MODULES="` + strings.Join(p.Modules, " ") + `"`
}

// HasHook reports whether name is one of the planned hooks.
func (p Plan) HasHook(name string) bool {
	return slices.Contains(p.Hooks, name)
}
