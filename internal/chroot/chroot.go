//go:build linux

// Package chroot runs commands inside an installation target root.
package chroot

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// DefaultPath is the PATH handed to commands in the target root.
const DefaultPath = "PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// Mount is a bind mount from the host into the target root.
type Mount struct {
	Source    string
	Target    string // relative to the target root
	Recursive bool
}

// DefaultMounts are the API filesystems mkinitcpio needs in the target.
//
//nolint:gochecknoglobals
var DefaultMounts = []Mount{
	{Source: "/proc", Target: "proc"},
	{Source: "/sys", Target: "sys", Recursive: true},
	{Source: "/dev", Target: "dev"},
}

// Exec is a Runner that bind mounts the API filesystems, chroots and waits
// for the command.
type Exec struct {
	Mounts []Mount
	Stdout io.Writer
	Stderr io.Writer

	mount   func(src, dst string, flags uintptr) error
	unmount func(dst string, flags int) error
}

// NewExec returns an Exec using DefaultMounts and the process' stdio.
func NewExec() *Exec {
	return &Exec{
		Mounts: DefaultMounts,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run implements Runner.
func (e *Exec) Run(root string, argv []string) (err error) {
	if len(argv) == 0 {
		return errors.New("empty command")
	}

	mounted, err := e.bindAll(root)
	defer func() {
		if uerr := e.unmountAll(mounted); uerr != nil {
			if err == nil {
				err = uerr
			} else {
				log.Printf("warning: %v", uerr)
			}
		}
	}()
	if err != nil {
		return err
	}

	cmd, err := e.command(root, argv)
	if err != nil {
		return err
	}
	log.Debugf("chroot %s: %s", root, strings.Join(argv, " "))
	return run(cmd)
}

// command builds the exec.Cmd. argv[0] is resolved against PATH inside
// root, not on the host.
func (e *Exec) command(root string, argv []string) (*exec.Cmd, error) {
	path, err := LookPath(root, argv[0])
	if err != nil {
		return nil, err
	}
	cmd := &exec.Cmd{Path: path, Args: argv}
	cmd.Dir = "/"
	cmd.Env = []string{DefaultPath}
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Chroot: root}
	return cmd, nil
}

// LookPath searches name in the DefaultPath directories below root and
// returns its path as seen from inside root.
func LookPath(root, name string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}
	dirs := strings.Split(strings.TrimPrefix(DefaultPath, "PATH="), ":")
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		info, err := os.Lstat(filepath.Join(root, candidate))
		if err != nil {
			continue
		}
		// Symlinks are resolved by the kernel after chroot.
		if info.Mode()&os.ModeSymlink != 0 {
			return candidate, nil
		}
		if info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
			return candidate, nil
		}
	}
	return "", errors.Newf("%s not found in %s", name, root)
}

func run(cmd *exec.Cmd) error {
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Argv: cmd.Args, Code: exitErr.ExitCode()}
	}
	if err != nil {
		return errors.Wrapf(err, "run %s", cmd.Path)
	}
	return nil
}

// bindAll mounts e.Mounts below root and returns the mounted targets in
// mount order, also on failure.
func (e *Exec) bindAll(root string) ([]string, error) {
	mount := e.mount
	if mount == nil {
		mount = func(src, dst string, flags uintptr) error {
			return unix.Mount(src, dst, "", flags, "")
		}
	}

	var mounted []string
	for _, m := range e.Mounts {
		dst := filepath.Join(root, m.Target)
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return mounted, errors.Wrapf(err, "create %s", dst)
		}
		flags := uintptr(unix.MS_BIND)
		if m.Recursive {
			flags |= unix.MS_REC
		}
		if err := mount(m.Source, dst, flags); err != nil {
			return mounted, errors.Wrapf(err, "bind %s", m.Source)
		}
		mounted = append(mounted, dst)
	}
	return mounted, nil
}

func (e *Exec) unmountAll(mounted []string) error {
	unmount := e.unmount
	if unmount == nil {
		unmount = unix.Unmount
	}

	var result *multierror.Error
	for i := len(mounted) - 1; i >= 0; i-- {
		if err := unmount(mounted[i], unix.MNT_DETACH); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "unmount %s", mounted[i]))
		}
	}
	return result.ErrorOrNil()
}

