package config

import (
	"os"
	"strconv"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
)

// Config carries the installer's fixed paths and size thresholds. Values are
// resolved once at startup and never mutated afterwards.
type Config struct {
	// ISOMountDir is where a source image is loop-mounted for inspection.
	ISOMountDir string
	// InstallRoot is the mount point for the freshly formatted root partition
	// during a fresh install.
	InstallRoot string
	// TempDir holds downloaded image artifacts.
	TempDir string
	// LiveMediumDir is where live-boot exposes the boot medium; the live/
	// directory underneath it carries the kernel, initrd and root filesystem
	// image of the running live system.
	LiveMediumDir string

	// MinDiskSize is the smallest disk considered a candidate target.
	MinDiskSize datasize.ByteSize
	// MinRootSize is the smallest acceptable root partition.
	MinRootSize datasize.ByteSize
	// DiskReserve is subtracted from the disk size before planning partitions,
	// leaving headroom for GPT metadata and alignment.
	DiskReserve datasize.ByteSize
	// EFISize is the fixed size of the EFI system partition.
	EFISize datasize.ByteSize
	// LowMemThreshold triggers an advisory when total RAM is below it.
	LowMemThreshold datasize.ByteSize

	// DefaultPassword is used for the administrative account when installing
	// non-interactively without an explicit password.
	DefaultPassword string
	// AdminUser is the name of the initial administrative account.
	AdminUser string
}

// Load resolves configuration from environment variables, falling back to the
// built-in defaults. A .env file is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ISOMountDir:   getEnv("ISO_MOUNT_DIR", "/mnt/iso"),
		InstallRoot:   getEnv("INSTALL_ROOT", "/mnt/installation"),
		TempDir:       getEnv("IMAGE_TEMP_DIR", os.TempDir()),
		LiveMediumDir: getEnv("LIVE_MEDIUM_DIR", "/run/live/medium"),

		MinDiskSize:     getEnvSize("MIN_DISK_SIZE", 2*datasize.GB),
		MinRootSize:     getEnvSize("MIN_ROOT_SIZE", datasize.GB+512*datasize.MB),
		DiskReserve:     getEnvSize("DISK_RESERVE", 2*datasize.GB),
		EFISize:         getEnvSize("EFI_SIZE", 512*datasize.MB),
		LowMemThreshold: getEnvSize("LOW_MEM_THRESHOLD", 4*datasize.GB),

		DefaultPassword: getEnv("DEFAULT_ADMIN_PASSWORD", "vyos"),
		AdminUser:       getEnv("ADMIN_USER", "vyos"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSize(key string, defaultValue datasize.ByteSize) datasize.ByteSize {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(value)); err == nil {
		return size
	}
	// Tolerate a raw byte count as well.
	if n, err := strconv.ParseUint(value, 10, 64); err == nil {
		return datasize.ByteSize(n)
	}
	return defaultValue
}
