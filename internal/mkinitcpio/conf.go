// Package mkinitcpio writes the hook and module selection into
// mkinitcpio.conf and runs mkinitcpio in the target root.
package mkinitcpio

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"

	"github.com/thus-installer/mkinitcpio/internal/types"
)

const (
	// DefaultSourceConf is the live medium's configuration used as template.
	DefaultSourceConf = "/etc/mkinitcpio.conf"
	// TargetConf is the configuration path relative to the target root.
	TargetConf = "etc/mkinitcpio.conf"
)

const maxLineSize = 1 << 20

// Patch copies r to w line by line, replacing the first line starting with
// HOOKS and the first line starting with MODULES with the plan's
// assignments. Every written line ends with a newline.
func Patch(r io.Reader, w io.Writer, plan types.Plan) error {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	bw := bufio.NewWriter(w)

	var hooksDone, modulesDone bool
	for s.Scan() {
		line := s.Text()
		switch {
		case !hooksDone && strings.HasPrefix(line, "HOOKS"):
			line = plan.HooksLine()
			hooksDone = true
		case !modulesDone && strings.HasPrefix(line, "MODULES"):
			line = plan.ModulesLine()
			modulesDone = true
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return errors.Wrap(err, "write line")
		}
	}
	if err := s.Err(); err != nil {
		return errors.Wrap(err, "read line")
	}
	if !hooksDone {
		log.Printf("warning: no HOOKS line found, hooks left unchanged")
	}
	if !modulesDone {
		log.Printf("warning: no MODULES line found, modules left unchanged")
	}
	return errors.Wrap(bw.Flush(), "flush")
}

// PatchFile reads src, applies Patch and replaces dst with the result.
// dst keeps its permissions if it already exists.
func PatchFile(src, dst string, plan types.Plan) error {
	log.Debugf("setting hooks and modules in %s", dst)
	log.Debug(plan.HooksLine())
	log.Debug(plan.ModulesLine())

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "open %s", src)
	}
	defer in.Close()

	mode := os.FileMode(0o644)
	if info, err := os.Stat(dst); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+"-*")
	if err != nil {
		return errors.Wrapf(err, "create temporary file for %s", dst)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := Patch(in, tmp, plan); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "patch %s", src)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "chmod %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return errors.Wrapf(err, "replace %s", dst)
	}
	committed = true
	return nil
}
