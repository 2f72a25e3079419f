// Package cpu reads the processor vendor from /proc/cpuinfo.
package cpu

import (
	"bufio"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
)

// DefaultCPUInfo is the kernel's processor information pseudo-file.
const DefaultCPUInfo = "/proc/cpuinfo"

// VendorIntel is the normalized vendor_id of Intel processors.
const VendorIntel = "genuineintel"

// Vendor returns the normalized vendor token of the first processor listed
// in the cpuinfo file at path, or "" if it cannot be determined.
func Vendor(path string) string {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("warning: cannot read %s: %v", path, err)
		return ""
	}
	defer f.Close()
	return ParseVendor(f)
}

// ParseVendor scans r for the first line containing "vendor_id" and returns
// the value after the colon, lowercased with all spaces removed.
func ParseVendor(r io.Reader) string {
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if !strings.Contains(line, "vendor_id") {
			continue
		}
		_, value, found := strings.Cut(line, ":")
		if !found {
			return ""
		}
		return normalize(value)
	}
	return ""
}

// IsIntel reports whether vendor names an Intel processor.
func IsIntel(vendor string) bool {
	return normalize(vendor) == VendorIntel
}

func normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
	return cases.Fold().String(s)
}
