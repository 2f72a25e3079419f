package settings

import (
	"github.com/cockroachdb/errors"

	"github.com/thus-installer/mkinitcpio/internal/types"
)

// Overrides are settings given on the command line. Nil fields were not
// given and leave the file value alone.
type Overrides struct {
	UseLUKS *bool
	UseLVM  *bool
	F2FS    *bool
	Btrfs   *bool
	Locale  *string
	// MountDevices are merged into the file's mapping, replacing equal
	// targets.
	MountDevices map[string]string
	// BlockLVM replaces the file's block_lvm when set.
	BlockLVM *bool
}

// Apply merges o into f. f may come from a settings file or be empty.
func (o Overrides) Apply(f *File) {
	setBool(&f.UseLUKS, o.UseLUKS)
	setBool(&f.UseLVM, o.UseLVM)
	setBool(&f.F2FS, o.F2FS)
	setBool(&f.Btrfs, o.Btrfs)
	if o.Locale != nil {
		f.Locale = *o.Locale
	}
	if f.MountDevices == nil {
		f.MountDevices = types.MountDevices{}
	}
	for target, dev := range o.MountDevices {
		f.MountDevices[target] = dev
	}
	if o.BlockLVM != nil {
		v := *o.BlockLVM
		f.BlockLVM = &v
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// ParseBlockLVM parses the -block-lvm value. "auto" yields nil, leaving the
// decision to detection.
func ParseBlockLVM(s string) (*bool, error) {
	switch s {
	case "auto":
		return nil, nil
	case "yes", "no":
		v := s == "yes"
		return &v, nil
	default:
		return nil, errors.Newf("invalid block-lvm value %q (must be auto, yes or no)", s)
	}
}
