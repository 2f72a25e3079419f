//go:build linux

// Package install configures and runs mkinitcpio in an installation target.
package install

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/thus-installer/mkinitcpio/internal/chroot"
	"github.com/thus-installer/mkinitcpio/internal/config"
	"github.com/thus-installer/mkinitcpio/internal/cpu"
	"github.com/thus-installer/mkinitcpio/internal/hooks"
	"github.com/thus-installer/mkinitcpio/internal/initramfs"
	"github.com/thus-installer/mkinitcpio/internal/lvm"
	"github.com/thus-installer/mkinitcpio/internal/mkinitcpio"
	"github.com/thus-installer/mkinitcpio/internal/types"
)

// ErrNoInit is returned when the generated image lacks /init.
var ErrNoInit = errors.New("initramfs has no /init")

// Options configure one mkinitcpio run. Zero values of the path fields
// select the system defaults.
type Options struct {
	// Root is the mounted installation target.
	Root         string
	Config       *config.Config
	Settings     types.Settings
	MountDevices types.MountDevices
	// BlockLVM overrides LVM detection when set.
	BlockLVM *bool
	// Arch overrides the machine name reported by uname.
	Arch types.Arch

	SourceConf string
	CPUInfo    string
	SysBlock   string

	Runner chroot.Runner
	// Verify inspects the generated image after mkinitcpio ran.
	Verify bool
}

func (o *Options) setDefaults() {
	if o.SourceConf == "" {
		o.SourceConf = mkinitcpio.DefaultSourceConf
	}
	if o.CPUInfo == "" {
		o.CPUInfo = cpu.DefaultCPUInfo
	}
	if o.SysBlock == "" {
		o.SysBlock = lvm.DefaultSysBlock
	}
	if o.Runner == nil {
		o.Runner = chroot.NewExec()
	}
	if o.MountDevices == nil {
		o.MountDevices = types.MountDevices{}
	}
}

func (o *Options) validate() error {
	if o.Root == "" {
		return errors.New("target root not set")
	}
	if o.Config == nil || o.Config.Kernel == "" {
		return errors.New("kernel package not configured")
	}
	if o.Settings.Locale == "" {
		return errors.New("locale not set")
	}
	if _, err := mkinitcpio.Command(o.Settings.Locale, o.Config.Kernel); err != nil {
		return err
	}
	return nil
}

// Run selects hooks and modules, patches mkinitcpio.conf and runs
// mkinitcpio in the target.
func Run(opts Options) error {
	plan, err := Prepare(&opts)
	if err != nil {
		return err
	}
	return Apply(opts, plan)
}

// Prepare gathers host and target facts and selects the plan. opts is
// completed with defaults.
func Prepare(opts *Options) (types.Plan, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return types.Plan{}, err
	}

	arch := opts.Arch
	if arch == "" {
		var err error
		if arch, err = machine(); err != nil {
			return types.Plan{}, err
		}
	}

	blockLVM := false
	if opts.BlockLVM != nil {
		blockLVM = *opts.BlockLVM
	} else if found, err := lvm.Detect(opts.SysBlock); err != nil {
		log.Printf("warning: LVM detection failed: %v", err)
	} else {
		blockLVM = found
	}

	in := hooks.Input{
		Settings:     opts.Settings,
		MountDevices: opts.MountDevices,
		CPUVendor:    cpu.Vendor(opts.CPUInfo),
		Arch:         arch,
		Plymouth:     hooks.PlymouthPresent(opts.Root),
		BlockLVM:     blockLVM,
	}
	log.Debugf("cpu vendor %q, arch %s, plymouth %v, lvm %v", in.CPUVendor, in.Arch, in.Plymouth, in.BlockLVM)

	return hooks.Select(in), nil
}

// Apply writes plan to the target's mkinitcpio.conf and generates the
// image. opts must have been completed by Prepare.
func Apply(opts Options, plan types.Plan) error {
	logger := log.WithField("run", uuid.NewString())

	dst := filepath.Join(opts.Root, mkinitcpio.TargetConf)
	logger.Infof("writing %s", dst)
	if err := mkinitcpio.PatchFile(opts.SourceConf, dst, plan); err != nil {
		return errors.Wrap(err, "configure mkinitcpio")
	}

	kernel := opts.Config.Kernel
	if err := mkinitcpio.Run(opts.Runner, opts.Root, opts.Settings.Locale, kernel); err != nil {
		return err
	}
	logger.Infof("initramfs for %s generated", kernel)

	if !opts.Verify {
		return nil
	}
	return verify(logger, mkinitcpio.ImagePath(opts.Root, kernel), plan)
}

func verify(logger *log.Entry, imagePath string, plan types.Plan) error {
	if _, err := os.Stat(imagePath); err != nil {
		logger.Warnf("skipping verification, no image at %s: %v", imagePath, err)
		return nil
	}
	img, err := initramfs.Inspect(imagePath)
	if errors.Is(err, initramfs.ErrUnsupportedCompression) {
		logger.Warnf("skipping verification of %s: %v", imagePath, err)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "verify initramfs")
	}
	if !img.Has("init") {
		return errors.Wrapf(ErrNoInit, "%s", imagePath)
	}
	if missing := img.MissingModules(plan.Modules); len(missing) > 0 {
		logger.Warnf("modules not in %s (built in?): %s", imagePath, strings.Join(missing, " "))
	}
	logger.Infof("verified %s (%s, %d entries)", imagePath, img.Compression, len(img.Entries))
	return nil
}

// WriteSummary prints what is about to be written to the target.
func WriteSummary(w io.Writer, opts Options, plan types.Plan) {
	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "  Target:  %s\n", opts.Root)
	fmt.Fprintf(w, "  Kernel:  %s\n", opts.Config.Kernel)
	fmt.Fprintf(w, "  Locale:  %s\n", opts.Settings.Locale)
	fmt.Fprintf(w, "  %s\n", plan.HooksLine())
	fmt.Fprintf(w, "  %s\n", plan.ModulesLine())
	fmt.Fprintln(w)
}

func machine() (types.Arch, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", errors.Wrap(err, "uname")
	}
	return types.Arch(unix.ByteSliceToString(u.Machine[:])), nil
}
