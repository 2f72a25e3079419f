package hooks

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thus-installer/mkinitcpio/internal/types"
)

func TestSelect(t *testing.T) {
	base := []string{"base", "udev", "autodetect", "modconf", "block", "keyboard", "keymap"}
	with := func(extra ...string) []string {
		return append(append([]string{}, base...), extra...)
	}

	tests := []struct {
		name        string
		in          Input
		wantHooks   []string
		wantModules []string
	}{
		{
			name:        "plain install",
			in:          Input{Arch: types.ArchX86_64},
			wantHooks:   with("filesystems", "fsck"),
			wantModules: []string{},
		},
		{
			name:        "luks on x86_64",
			in:          Input{Settings: types.Settings{UseLUKS: true}, Arch: types.ArchX86_64},
			wantHooks:   with("encrypt", "filesystems", "fsck"),
			wantModules: []string{"dm_mod", "dm_crypt", "ext4", "aes_x86_64", "sha256", "sha512"},
		},
		{
			name:        "luks on i686",
			in:          Input{Settings: types.Settings{UseLUKS: true}, Arch: types.ArchI686},
			wantHooks:   with("encrypt", "filesystems", "fsck"),
			wantModules: []string{"dm_mod", "dm_crypt", "ext4", "aes_i586", "sha256", "sha512"},
		},
		{
			name:        "luks with plymouth",
			in:          Input{Settings: types.Settings{UseLUKS: true}, Arch: types.ArchX86_64, Plymouth: true},
			wantHooks:   with("plymouth", "plymouth-encrypt", "filesystems", "fsck"),
			wantModules: []string{"dm_mod", "dm_crypt", "ext4", "aes_x86_64", "sha256", "sha512"},
		},
		{
			name:        "plymouth without luks",
			in:          Input{Plymouth: true},
			wantHooks:   with("plymouth", "filesystems", "fsck"),
			wantModules: []string{},
		},
		{
			name:        "lvm on luks",
			in:          Input{Settings: types.Settings{UseLUKS: true, UseLVM: true}, Arch: types.ArchX86_64},
			wantHooks:   with("encrypt", "lvm2", "filesystems", "fsck"),
			wantModules: []string{"dm_mod", "dm_crypt", "ext4", "aes_x86_64", "sha256", "sha512"},
		},
		{
			name:        "lvm detected on block devices",
			in:          Input{BlockLVM: true},
			wantHooks:   with("lvm2", "filesystems", "fsck"),
			wantModules: []string{},
		},
		{
			name:        "swap",
			in:          Input{MountDevices: types.MountDevices{"/": "/dev/sda1", "swap": "/dev/sda2"}},
			wantHooks:   with("resume", "filesystems", "fsck"),
			wantModules: []string{},
		},
		{
			name:        "f2fs",
			in:          Input{Settings: types.Settings{F2FS: true}},
			wantHooks:   with("filesystems", "fsck"),
			wantModules: []string{"f2fs"},
		},
		{
			name:        "btrfs on intel",
			in:          Input{Settings: types.Settings{Btrfs: true}, CPUVendor: "genuineintel"},
			wantHooks:   with("filesystems"),
			wantModules: []string{"crc32c-intel"},
		},
		{
			name:        "btrfs on amd",
			in:          Input{Settings: types.Settings{Btrfs: true}, CPUVendor: "authenticamd"},
			wantHooks:   with("filesystems"),
			wantModules: []string{"crc32c"},
		},
		{
			name:        "btrfs with unknown vendor",
			in:          Input{Settings: types.Settings{Btrfs: true}},
			wantHooks:   with("filesystems"),
			wantModules: []string{"crc32c"},
		},
		{
			name: "everything",
			in: Input{
				Settings:     types.Settings{UseLUKS: true, UseLVM: true, F2FS: true, Btrfs: true},
				MountDevices: types.MountDevices{"swap": "/dev/mapper/vg-swap"},
				CPUVendor:    "genuineintel",
				Arch:         types.ArchX86_64,
				Plymouth:     true,
			},
			wantHooks: with("plymouth", "plymouth-encrypt", "lvm2", "resume", "filesystems"),
			wantModules: []string{
				"dm_mod", "dm_crypt", "ext4", "aes_x86_64", "sha256", "sha512", "f2fs", "crc32c-intel",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.in)
			if diff := cmp.Diff(tt.wantHooks, got.Hooks); diff != "" {
				t.Errorf("hooks mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantModules, got.Modules); diff != "" {
				t.Errorf("modules mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelect_VendorValueEquality(t *testing.T) {
	vendor := strings.ToLower("Genuine" + strings.Repeat("Intel", 1))
	plan := Select(Input{Settings: types.Settings{Btrfs: true}, CPUVendor: vendor})
	assert.Equal(t, []string{"crc32c-intel"}, plan.Modules)
	assert.False(t, plan.HasHook("fsck"))
}

func TestSelect_Ordering(t *testing.T) {
	plan := Select(Input{
		Settings:     types.Settings{UseLUKS: true, UseLVM: true},
		MountDevices: types.MountDevices{"swap": "/dev/sda3"},
		Plymouth:     true,
	})

	idx := func(h string) int {
		i := slices.Index(plan.Hooks, h)
		require.GreaterOrEqual(t, i, 0, "hook %s missing", h)
		return i
	}
	assert.Less(t, idx("plymouth"), idx("plymouth-encrypt"))
	assert.Less(t, idx("plymouth-encrypt"), idx("lvm2"))
	assert.Less(t, idx("lvm2"), idx("filesystems"))
	assert.Less(t, idx("resume"), idx("filesystems"))
}

func TestSelect_DoesNotShareBaseSlice(t *testing.T) {
	first := Select(Input{})
	first.Hooks[0] = "mutated"
	second := Select(Input{})
	assert.Equal(t, "base", second.Hooks[0])
}

func TestPlymouthPresent(t *testing.T) {
	root := t.TempDir()
	assert.False(t, PlymouthPresent(root))

	bin := filepath.Join(root, PlymouthBinary)
	require.NoError(t, os.MkdirAll(filepath.Dir(bin), 0o755))
	require.NoError(t, os.WriteFile(bin, nil, 0o755))
	assert.True(t, PlymouthPresent(root))
}
