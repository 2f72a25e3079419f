package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thus-installer/mkinitcpio/internal/types"
)

func ptr[T any](v T) *T { return &v }

func TestOverridesApply(t *testing.T) {
	fromFile := func() *File {
		return &File{
			Settings: types.Settings{
				UseLUKS: true,
				Btrfs:   true,
				Locale:  "de_DE.UTF-8",
			},
			MountDevices: types.MountDevices{"/": "/dev/sda1", "swap": "/dev/sda2"},
			BlockLVM:     ptr(true),
		}
	}

	tests := []struct {
		name   string
		file   *File
		o      Overrides
		want   types.Settings
		mounts types.MountDevices
		lvm    *bool
	}{
		{
			name:   "no flags keep file values",
			file:   fromFile(),
			want:   types.Settings{UseLUKS: true, Btrfs: true, Locale: "de_DE.UTF-8"},
			mounts: types.MountDevices{"/": "/dev/sda1", "swap": "/dev/sda2"},
			lvm:    ptr(true),
		},
		{
			name:   "explicit false beats file true",
			file:   fromFile(),
			o:      Overrides{UseLUKS: ptr(false), Btrfs: ptr(false), F2FS: ptr(true)},
			want:   types.Settings{F2FS: true, Locale: "de_DE.UTF-8"},
			mounts: types.MountDevices{"/": "/dev/sda1", "swap": "/dev/sda2"},
			lvm:    ptr(true),
		},
		{
			name: "locale, mounts and block lvm",
			file: fromFile(),
			o: Overrides{
				Locale:       ptr("C"),
				MountDevices: map[string]string{"swap": "/dev/sdb2", "/boot": "/dev/sda3"},
				BlockLVM:     ptr(false),
			},
			want:   types.Settings{UseLUKS: true, Btrfs: true, Locale: "C"},
			mounts: types.MountDevices{"/": "/dev/sda1", "swap": "/dev/sdb2", "/boot": "/dev/sda3"},
			lvm:    ptr(false),
		},
		{
			name:   "flags without settings file",
			file:   &File{},
			o:      Overrides{UseLVM: ptr(true), MountDevices: map[string]string{"swap": "/dev/sda2"}},
			want:   types.Settings{UseLVM: true},
			mounts: types.MountDevices{"swap": "/dev/sda2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.o.Apply(tt.file)
			assert.Equal(t, tt.want, tt.file.Settings)
			assert.Equal(t, tt.mounts, tt.file.MountDevices)
			assert.Equal(t, tt.lvm, tt.file.BlockLVM)
		})
	}
}

func TestParseBlockLVM(t *testing.T) {
	tests := []struct {
		in      string
		want    *bool
		wantErr bool
	}{
		{in: "auto"},
		{in: "yes", want: ptr(true)},
		{in: "no", want: ptr(false)},
		{in: "true", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBlockLVM(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
