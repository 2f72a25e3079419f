package mkinitcpio

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/thus-installer/mkinitcpio/internal/chroot"
)

const (
	binary = "/usr/bin/mkinitcpio"
	// PresetDir holds the kernel presets, relative to the target root.
	PresetDir = "etc/mkinitcpio.d"
)

// ErrInvalidArgument is returned for a locale or kernel name that cannot be
// passed to the shell as a single word.
var ErrInvalidArgument = errors.New("invalid mkinitcpio argument")

//nolint:gochecknoglobals
var shellWord = regexp.MustCompile(`^[A-Za-z0-9_.@-]+$`)

// Command returns the argv running mkinitcpio for the kernel preset with
// LANG set to locale. LANG has to be set explicitly, bsdcpio fails with the
// installer's environment otherwise.
func Command(locale, kernel string) ([]string, error) {
	if !shellWord.MatchString(locale) {
		return nil, errors.Wrapf(ErrInvalidArgument, "locale %q", locale)
	}
	if !shellWord.MatchString(kernel) {
		return nil, errors.Wrapf(ErrInvalidArgument, "kernel %q", kernel)
	}
	return []string{"sh", "-c", fmt.Sprintf("LANG=%s %s -p %s", locale, binary, kernel)}, nil
}

// Run executes mkinitcpio for kernel inside root.
func Run(runner chroot.Runner, root, locale, kernel string) error {
	argv, err := Command(locale, kernel)
	if err != nil {
		return err
	}
	log.Printf("running mkinitcpio -p %s in %s", kernel, root)
	if err := runner.Run(root, argv); err != nil {
		return errors.Wrapf(err, "mkinitcpio -p %s", kernel)
	}
	return nil
}

// ImagePath returns where the default preset of kernel writes its image.
// default_image of <root>/etc/mkinitcpio.d/<kernel>.preset wins; without a
// usable value the image is assumed at /boot/initramfs-<kernel>.img.
func ImagePath(root, kernel string) string {
	presetPath := filepath.Join(root, PresetDir, kernel+".preset")
	var image string
	if _, err := os.Stat(presetPath); err == nil {
		if image, err = presetImage(presetPath); err != nil {
			log.Printf("warning: cannot read preset %s: %v", presetPath, err)
		}
	}
	if image == "" {
		image = "/boot/initramfs-" + kernel + ".img"
	}
	return filepath.Join(root, image)
}

// presetImage reads default_image from a preset. Values referencing shell
// variables cannot be resolved here and yield "".
func presetImage(path string) (string, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		SkipUnrecognizableLines: true,
		IgnoreInlineComment:     true,
	}, path)
	if err != nil {
		return "", err
	}
	image := strings.Trim(f.Section(ini.DefaultSection).Key("default_image").String(), `"'`)
	if strings.Contains(image, "$") || !filepath.IsAbs(image) {
		return "", nil
	}
	return image, nil
}
