package lvm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDM(t *testing.T, root, name, uuid string) {
	t.Helper()
	dir := filepath.Join(root, name, "dm")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uuid"), []byte(uuid+"\n"), 0o644))
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, root string)
		want  bool
	}{
		{
			name: "no dm devices",
			setup: func(t *testing.T, root string) {
				require.NoError(t, os.MkdirAll(filepath.Join(root, "sda"), 0o755))
			},
		},
		{
			name: "crypt only",
			setup: func(t *testing.T, root string) {
				writeDM(t, root, "dm-0", "CRYPT-LUKS1-4a5d0c7e-cryptManjaro")
			},
		},
		{
			name: "lvm volume",
			setup: func(t *testing.T, root string) {
				writeDM(t, root, "dm-0", "CRYPT-LUKS1-4a5d0c7e-cryptManjaro")
				writeDM(t, root, "dm-1", "LVM-Jf3cQp1vWn0b9fUq2Yx")
			},
			want: true,
		},
		{
			name: "dm device without uuid",
			setup: func(t *testing.T, root string) {
				require.NoError(t, os.MkdirAll(filepath.Join(root, "dm-3"), 0o755))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			tt.setup(t, root)

			got, err := Detect(root)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect_MissingDir(t *testing.T) {
	_, err := Detect(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
