// Package initramfs inspects the image mkinitcpio produced, to catch a
// broken initramfs before the installer reboots into it.
package initramfs

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/cavaliergopher/cpio"
	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"
)

// Compression names the compressor of the main archive.
type Compression string

const (
	CompressionNone  Compression = "none"
	CompressionGzip  Compression = "gzip"
	CompressionXZ    Compression = "xz"
	CompressionZstd  Compression = "zstd"
	CompressionBzip2 Compression = "bzip2"
	CompressionLZ4   Compression = "lz4"
	CompressionLZMA  Compression = "lzma"
	CompressionLZOP  Compression = "lzop"
)

var (
	// ErrUnsupportedCompression is returned for images that cannot be
	// decompressed here. The image may still be valid.
	ErrUnsupportedCompression = errors.New("unsupported compression")
	// ErrUnknownFormat is returned when the data is neither cpio nor a
	// known compressed stream.
	ErrUnknownFormat = errors.New("unknown image format")
)

//nolint:gochecknoglobals
var magics = []struct {
	magic       []byte
	compression Compression
}{
	{[]byte("070701"), CompressionNone},
	{[]byte("070702"), CompressionNone},
	{[]byte{0x1f, 0x8b}, CompressionGzip},
	{[]byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, CompressionXZ},
	{[]byte{0x28, 0xb5, 0x2f, 0xfd}, CompressionZstd},
	{[]byte("BZh"), CompressionBzip2},
	{[]byte{0x02, 0x21, 0x4c, 0x18}, CompressionLZ4},
	{[]byte{0x04, 0x22, 0x4d, 0x18}, CompressionLZ4},
	{[]byte{0x89, 'L', 'Z', 'O'}, CompressionLZOP},
	{[]byte{0x5d, 0x00, 0x00}, CompressionLZMA},
}

// Image describes the contents of an initramfs image.
type Image struct {
	Path        string
	Compression Compression
	// Early lists entries of uncompressed archives prepended to the main
	// archive, e.g. CPU microcode.
	Early []string
	// Entries lists the main archive's entries, relative, without "./".
	Entries []string
}

// Has reports whether name is an entry of the main archive.
func (img *Image) Has(name string) bool {
	return slices.Contains(img.Entries, cleanName(name))
}

// MissingModules returns the modules for which no kernel object is in the
// image. Modules built into the kernel are reported as missing too.
func (img *Image) MissingModules(modules []string) []string {
	present := map[string]bool{}
	for _, e := range img.Entries {
		base := path.Base(e)
		idx := strings.Index(base, ".ko")
		if idx <= 0 {
			continue
		}
		present[moduleName(base[:idx])] = true
	}

	var missing []string
	for _, m := range modules {
		if !present[moduleName(m)] {
			missing = append(missing, m)
		}
	}
	return missing
}

// Inspect reads the image at p and lists its entries.
func Inspect(p string) (*Image, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "inspect %s", p)
	}
	img.Path = p
	log.Debugf("%s: %s compressed, %d entries, %d early entries",
		p, img.Compression, len(img.Entries), len(img.Early))
	return img, nil
}

// Read parses an initramfs image: any number of uncompressed cpio archives
// followed by an optionally compressed main archive.
func Read(r io.Reader) (*Image, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	img := &Image{}

	var segments [][]string
	for {
		if err := skipPadding(br); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		c, err := detect(br)
		if err != nil {
			return nil, err
		}

		if c == CompressionNone {
			names, err := list(br)
			if err != nil {
				return nil, errors.Wrap(err, "read uncompressed archive")
			}
			segments = append(segments, names)
			continue
		}

		names, err := listCompressed(br, c)
		if err != nil {
			return nil, err
		}
		img.Compression = c
		img.Early = flatten(segments)
		img.Entries = names
		return img, nil
	}

	if len(segments) == 0 {
		return nil, errors.Wrap(ErrUnknownFormat, "empty image")
	}
	// Uncompressed image: the last archive is the main one.
	img.Compression = CompressionNone
	img.Early = flatten(segments[:len(segments)-1])
	img.Entries = segments[len(segments)-1]
	return img, nil
}

func detect(br *bufio.Reader) (Compression, error) {
	head, err := br.Peek(6)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "read magic")
	}
	for _, m := range magics {
		if bytes.HasPrefix(head, m.magic) {
			return m.compression, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownFormat, "magic %x", head)
}

func listCompressed(br *bufio.Reader, c Compression) ([]string, error) {
	var (
		rd  io.Reader
		err error
	)

	switch c {
	case CompressionGzip:
		var zr *gzip.Reader
		zr, err = gzip.NewReader(br)
		if err == nil {
			defer zr.Close()
			rd = zr
		}
	case CompressionXZ:
		rd, err = xz.NewReader(br)
	case CompressionZstd:
		var zr *zstd.Decoder
		zr, err = zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err == nil {
			defer zr.Close()
			rd = zr
		}
	case CompressionBzip2:
		rd = bzip2.NewReader(br)
	default:
		return nil, errors.Wrapf(ErrUnsupportedCompression, "%s", c)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s reader", c)
	}

	names, err := list(rd)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s archive", c)
	}
	return names, nil
}

// list reads cpio entries up to and including the trailer.
func list(r io.Reader) ([]string, error) {
	cr := cpio.NewReader(r)
	var names []string
	for {
		hdr, err := cr.Next()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		if name := cleanName(hdr.Name); name != "" {
			names = append(names, name)
		}
	}
}

// skipPadding discards NUL bytes between concatenated archives.
func skipPadding(br *bufio.Reader) error {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return err
		}
		if b != 0 {
			return br.UnreadByte()
		}
	}
}

func cleanName(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

func moduleName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func flatten(segments [][]string) []string {
	var out []string
	for _, s := range segments {
		out = append(out, s...)
	}
	return out
}
