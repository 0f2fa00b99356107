package workflow

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// rootfsImage is the compressed root filesystem shipped inside the live
// directory of an image.
const rootfsImage = "filesystem.squashfs"

// copyImageFiles materializes a new image from the live directory of a
// source (mounted ISO or live medium): kernel and initrd are copied
// verbatim, the root filesystem image is copied under the image's name.
func copyImageFiles(liveDir, targetDir, imageName string) error {
	entries, err := os.ReadDir(liveDir)
	if err != nil {
		return fmt.Errorf("read live directory %s: %w", liveDir, err)
	}

	copiedKernel := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		matchKernel, _ := filepath.Match("vmlinuz*", name)
		matchInitrd, _ := filepath.Match("initrd*", name)
		if !matchKernel && !matchInitrd {
			continue
		}
		if err := copyFile(filepath.Join(liveDir, name), filepath.Join(targetDir, name)); err != nil {
			return err
		}
		if matchKernel {
			copiedKernel = true
		}
	}
	if !copiedKernel {
		return fmt.Errorf("no kernel found in %s", liveDir)
	}

	src := filepath.Join(liveDir, rootfsImage)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("missing root filesystem image %s: %w", src, err)
	}
	dst := filepath.Join(targetDir, imageName+".squashfs")
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", dst, err)
	}
	return nil
}
