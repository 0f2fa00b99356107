package compat

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/vyos/image-tools/lib/cmdrun"
)

// ErrUnsupportedSignature means the image ships a signature of a type this
// tool cannot verify. Verification is treated as failed, never skipped.
var ErrUnsupportedSignature = errors.New("unsupported signature type, signature cannot be verified")

// signatureTypes lists the signature file extensions a verifier collaborator
// is known to handle.
var signatureTypes = []string{".asc", ".gpg"}

// unsupportedSignatureTypes are extensions recognized as detached signatures
// that no verifier here can check. Other siblings (checksums, notes) are not
// signatures and are ignored.
var unsupportedSignatureTypes = []string{".sig", ".minisig"}

// FindSignature looks for a signature file next to an image. Returns the
// signature path when a supported one exists, "" when the image is unsigned,
// and ErrUnsupportedSignature when the only signatures present are of a type
// that cannot be verified.
func FindSignature(imagePath string) (string, error) {
	for _, ext := range signatureTypes {
		if isRegularFile(imagePath + ext) {
			return imagePath + ext, nil
		}
	}
	for _, ext := range unsupportedSignatureTypes {
		if isRegularFile(imagePath + ext) {
			return "", ErrUnsupportedSignature
		}
	}
	return "", nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Verifier checks a detached signature against an image. The verification
// mechanics live outside this tool.
type Verifier interface {
	Verify(ctx context.Context, imagePath, signaturePath string) error
}

type gpgVerifier struct {
	runner cmdrun.Runner
}

// NewVerifier returns a Verifier shelling out to gpg.
func NewVerifier(runner cmdrun.Runner) Verifier {
	return &gpgVerifier{runner: runner}
}

func (v *gpgVerifier) Verify(ctx context.Context, imagePath, signaturePath string) error {
	if _, err := v.runner.Run(ctx, "gpg", "--verify", signaturePath, imagePath); err != nil {
		return fmt.Errorf("signature is not valid: %w", err)
	}
	return nil
}
