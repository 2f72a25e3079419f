// Package lvm detects whether device-mapper devices managed by LVM exist.
package lvm

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultSysBlock is the sysfs directory listing block devices.
const DefaultSysBlock = "/sys/block"

const uuidPrefix = "LVM-"

// Detect reports whether any dm-* device below sysBlock is an LVM logical
// volume.
func Detect(sysBlock string) (bool, error) {
	entries, err := os.ReadDir(sysBlock)
	if err != nil {
		return false, errors.Wrapf(err, "read %s", sysBlock)
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "dm-") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(sysBlock, name, "dm", "uuid"))
		if err != nil {
			log.Debugf("skipping %s: cannot read dm uuid: %v", name, err)
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(string(b)), uuidPrefix) {
			log.Debugf("%s is an LVM logical volume", name)
			return true, nil
		}
	}
	return false, nil
}
