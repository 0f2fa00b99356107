package config

import (
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, "/mnt/iso", cfg.ISOMountDir)
	require.Equal(t, "/mnt/installation", cfg.InstallRoot)
	require.Equal(t, "/run/live/medium", cfg.LiveMediumDir)
	require.Equal(t, 2*datasize.GB, cfg.MinDiskSize)
	require.Equal(t, datasize.GB+512*datasize.MB, cfg.MinRootSize)
	require.Equal(t, 512*datasize.MB, cfg.EFISize)
	require.Equal(t, "vyos", cfg.AdminUser)
	require.Equal(t, "vyos", cfg.DefaultPassword)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ISO_MOUNT_DIR", "/tmp/iso")
	t.Setenv("MIN_DISK_SIZE", "8GB")
	t.Setenv("EFI_SIZE", "268435456") // raw byte count
	t.Setenv("ADMIN_USER", "operator")

	cfg := Load()

	require.Equal(t, "/tmp/iso", cfg.ISOMountDir)
	require.Equal(t, 8*datasize.GB, cfg.MinDiskSize)
	require.Equal(t, 256*datasize.MB, cfg.EFISize)
	require.Equal(t, "operator", cfg.AdminUser)
}

func TestLoadBadSizeFallsBack(t *testing.T) {
	t.Setenv("MIN_DISK_SIZE", "a lot")

	cfg := Load()
	require.Equal(t, 2*datasize.GB, cfg.MinDiskSize)
}
