// Package hooks decides which mkinitcpio hooks and kernel modules the target
// system needs.
package hooks

import (
	"os"
	"path/filepath"

	"github.com/thus-installer/mkinitcpio/internal/cpu"
	"github.com/thus-installer/mkinitcpio/internal/types"
)

// PlymouthBinary is the splash binary path relative to the target root.
const PlymouthBinary = "usr/bin/plymouth"

//nolint:gochecknoglobals
var baseHooks = []string{"base", "udev", "autodetect", "modconf", "block", "keyboard", "keymap"}

// Input collects everything the selection depends on.
type Input struct {
	Settings     types.Settings
	MountDevices types.MountDevices
	CPUVendor    string
	Arch         types.Arch
	// Plymouth is true when the target root ships the plymouth binary.
	Plymouth bool
	// BlockLVM is true when the target block devices use LVM.
	BlockLVM bool
}

// PlymouthPresent reports whether the plymouth binary exists below root.
func PlymouthPresent(root string) bool {
	_, err := os.Stat(filepath.Join(root, PlymouthBinary))
	return err == nil
}

// Select builds the ordered hook and module lists.
//
// plymouth has to come before any encrypt hook, and encrypt before lvm2 and
// filesystems (LVM on LUKS needs: encrypt lvm2 filesystems).
func Select(in Input) types.Plan {
	hooks := append([]string{}, baseHooks...)
	modules := []string{}

	if in.Plymouth {
		hooks = append(hooks, "plymouth")
	}

	if in.Settings.UseLUKS {
		if in.Plymouth {
			hooks = append(hooks, "plymouth-encrypt")
		} else {
			hooks = append(hooks, "encrypt")
		}

		modules = append(modules, "dm_mod", "dm_crypt", "ext4")
		if in.Arch == types.ArchX86_64 {
			modules = append(modules, "aes_x86_64")
		} else {
			modules = append(modules, "aes_i586")
		}
		modules = append(modules, "sha256", "sha512")
	}

	if in.Settings.F2FS {
		modules = append(modules, "f2fs")
	}

	if in.BlockLVM || in.Settings.UseLVM {
		hooks = append(hooks, "lvm2")
	}

	if in.MountDevices.HasSwap() {
		hooks = append(hooks, "resume")
	}

	hooks = append(hooks, "filesystems")

	switch {
	case in.Settings.Btrfs && cpu.IsIntel(in.CPUVendor):
		modules = append(modules, "crc32c-intel")
	case in.Settings.Btrfs:
		modules = append(modules, "crc32c")
	default:
		hooks = append(hooks, "fsck")
	}

	return types.Plan{Hooks: hooks, Modules: modules}
}
