//go:build linux

package main

import (
	"flag"
	"os"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"

	"github.com/thus-installer/mkinitcpio/internal/cli"
	"github.com/thus-installer/mkinitcpio/internal/config"
	"github.com/thus-installer/mkinitcpio/internal/cpu"
	"github.com/thus-installer/mkinitcpio/internal/install"
	"github.com/thus-installer/mkinitcpio/internal/lvm"
	"github.com/thus-installer/mkinitcpio/internal/mkinitcpio"
	"github.com/thus-installer/mkinitcpio/internal/settings"
)

const defaultLocale = "en_US.UTF-8"

//nolint:gochecknoglobals
var (
	rootFlag       string
	configFlag     string
	settingsFlag   string
	sourceConfFlag string
	cpuinfoFlag    string
	sysBlockFlag   string
	blockLVMFlag   string
	localeFlag     string
	luksFlag       bool
	lvmFlag        bool
	f2fsFlag       bool
	btrfsFlag      bool
	verifyFlag     bool
	verboseFlag    bool
)

func init() {
	flag.StringVar(&rootFlag, "root", "", "mounted installation target")
	flag.StringVar(&configFlag, "config", config.DefaultPath, "installer configuration file")
	flag.StringVar(&settingsFlag, "settings", "", "installer settings file (YAML)")
	flag.StringVar(&sourceConfFlag, "source-conf", mkinitcpio.DefaultSourceConf, "mkinitcpio.conf used as template")
	flag.StringVar(&cpuinfoFlag, "cpuinfo", cpu.DefaultCPUInfo, "processor information file")
	flag.StringVar(&sysBlockFlag, "sys-block", lvm.DefaultSysBlock, "sysfs block device directory")
	flag.StringVar(&blockLVMFlag, "block-lvm", "auto", "target uses LVM: auto, yes or no")
	flag.StringVar(&localeFlag, "locale", "", "LANG for mkinitcpio")
	flag.BoolVar(&luksFlag, "luks", false, "root is LUKS encrypted")
	flag.BoolVar(&lvmFlag, "lvm", false, "root is on LVM")
	flag.BoolVar(&f2fsFlag, "f2fs", false, "target uses f2fs")
	flag.BoolVar(&btrfsFlag, "btrfs", false, "root is btrfs")
	flag.BoolVar(&verifyFlag, "verify", true, "inspect the generated initramfs")
	flag.BoolVar(&cli.YesFlag, "yes", false, "automatic yes to prompts")
	flag.BoolVar(&verboseFlag, "v", false, "debug logging")
}

func main() {
	var mounts cli.MultiFlag
	flag.Var(&mounts, "mount", "mount target=device (repeatable), e.g. swap=/dev/sda2")
	flag.Parse()

	if verboseFlag {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(configFlag)
	cli.Must("load installer configuration", err)

	file := &settings.File{}
	if settingsFlag != "" {
		file, err = settings.Load(settingsFlag)
		cli.Must("load settings", err)
	}
	overrides, err := commandLineOverrides(mounts)
	cli.Must("parse flags", err)
	overrides.Apply(file)

	opts := install.Options{
		Config:       cfg,
		Settings:     file.Settings,
		MountDevices: file.MountDevices,
		BlockLVM:     file.BlockLVM,
		SourceConf:   sourceConfFlag,
		CPUInfo:      cpuinfoFlag,
		SysBlock:     sysBlockFlag,
		Verify:       verifyFlag,
	}

	opts.Root = rootFlag
	if opts.Root == "" {
		opts.Root = cli.AskRequired("Installation target root")
	}
	if _, err := os.Stat(opts.Root); err != nil {
		log.Fatalf("target root: %v", err)
	}
	if opts.Settings.Locale == "" {
		opts.Settings.Locale = cli.Ask("Locale", defaultLocale)
	}

	plan, err := install.Prepare(&opts)
	cli.Must("select hooks", err)

	install.WriteSummary(os.Stdout, opts, plan)
	if !cli.AskYesNo("Continue?", true) {
		log.Fatal("aborted by user")
	}

	cli.Must("mkinitcpio", install.Apply(opts, plan))
	log.Print("mkinitcpio finished successfully")
}

// commandLineOverrides collects the settings flags given explicitly.
func commandLineOverrides(mounts cli.MultiFlag) (settings.Overrides, error) {
	var o settings.Overrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "luks":
			o.UseLUKS = &luksFlag
		case "lvm":
			o.UseLVM = &lvmFlag
		case "f2fs":
			o.F2FS = &f2fsFlag
		case "btrfs":
			o.Btrfs = &btrfsFlag
		case "locale":
			o.Locale = &localeFlag
		}
	})

	kv, err := mounts.KeyValues()
	if err != nil {
		return o, errors.Wrap(err, "-mount")
	}
	o.MountDevices = kv

	if o.BlockLVM, err = settings.ParseBlockLVM(blockLVMFlag); err != nil {
		return o, err
	}
	return o, nil
}
