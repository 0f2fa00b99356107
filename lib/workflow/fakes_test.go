package workflow

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/require"

	"github.com/vyos/image-tools/lib/config"
	"github.com/vyos/image-tools/lib/disk"
	"github.com/vyos/image-tools/lib/remote"
)

type fakeHost struct {
	live    bool
	memory  datasize.ByteSize
	unsaved bool
	synced  bool
}

func (h *fakeHost) IsLiveBoot() bool { return h.live }

func (h *fakeHost) TotalMemory() (datasize.ByteSize, error) { return h.memory, nil }

func (h *fakeHost) UnsavedChanges(context.Context) bool { return h.unsaved }

func (h *fakeHost) Sync() { h.synced = true }

type fakeInventory struct {
	candidates  []disk.Disk
	listErr     error
	persistence string
	persistErr  error
}

func (inv *fakeInventory) ListCandidates(context.Context, datasize.ByteSize) ([]disk.Disk, error) {
	if inv.listErr != nil {
		return nil, inv.listErr
	}
	if len(inv.candidates) == 0 {
		return nil, disk.ErrNoSuitableDisk
	}
	return inv.candidates, nil
}

func (inv *fakeInventory) FindPersistence(context.Context) (string, error) {
	return inv.persistence, inv.persistErr
}

type fakePartitioner struct {
	devices   []string
	err       error
	formatErr error
	applied   []disk.Plan
	formatted [][]string
}

func (p *fakePartitioner) Apply(_ context.Context, plan disk.Plan) ([]string, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.applied = append(p.applied, plan)
	return p.devices, nil
}

func (p *fakePartitioner) Format(_ context.Context, _ disk.Plan, devices []string) error {
	if p.formatErr != nil {
		return p.formatErr
	}
	p.formatted = append(p.formatted, devices)
	return nil
}

// fakeMounter records mount activity without touching the mount table. Mount
// points are tracked so tests can assert nothing is left mounted.
type fakeMounter struct {
	mounted   []string
	unmounted []string
	failMount map[string]error

	// onMount and onUnmount run during the respective call; tests use them
	// to cancel contexts or snapshot filesystem state before teardown.
	onMount   func(target string)
	onUnmount func(target string)
}

func (m *fakeMounter) Mount(_ context.Context, _, target, _ string, _ ...string) error {
	if err := m.failMount[target]; err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return err
	}
	m.mounted = append(m.mounted, target)
	if m.onMount != nil {
		m.onMount(target)
	}
	return nil
}

func (m *fakeMounter) MountISO(ctx context.Context, imagePath, target string) error {
	return m.Mount(ctx, imagePath, target, "iso9660")
}

func (m *fakeMounter) Unmount(_ context.Context, target string) error {
	if m.onUnmount != nil {
		m.onUnmount(target)
	}
	m.unmounted = append(m.unmounted, target)
	return nil
}

// active returns the mount points mounted but never unmounted.
func (m *fakeMounter) active() []string {
	var out []string
	for _, target := range m.mounted {
		released := false
		for _, u := range m.unmounted {
			if u == target {
				released = true
				break
			}
		}
		if !released {
			out = append(out, target)
		}
	}
	return out
}

type bootCall struct {
	op   string
	name string
	root string
}

type fakeBoot struct {
	calls      []bootCall
	installErr error
}

func (b *fakeBoot) Install(_ context.Context, diskDevice, bootDir, _ string) error {
	if b.installErr != nil {
		return b.installErr
	}
	b.calls = append(b.calls, bootCall{op: "install", name: diskDevice, root: bootDir})
	return nil
}

func (b *fakeBoot) AddVersion(name, rootDir string) error {
	b.calls = append(b.calls, bootCall{op: "add_version", name: name, root: rootDir})
	return nil
}

func (b *fakeBoot) SetDefault(name, rootDir string) error {
	b.calls = append(b.calls, bootCall{op: "set_default", name: name, root: rootDir})
	return nil
}

func (b *fakeBoot) SetConsoleType(console, rootDir string) error {
	b.calls = append(b.calls, bootCall{op: "set_console", name: console, root: rootDir})
	return nil
}

func (b *fakeBoot) ops() []string {
	out := make([]string, len(b.calls))
	for i, c := range b.calls {
		out[i] = c.op
	}
	return out
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "$fake$" + password, nil
}

type fakeDownloader struct {
	source string // file copied into destDir on Download
	err    error

	downloaded string
}

func (d *fakeDownloader) Download(_ context.Context, _, destDir string, _ remote.Options) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	data, err := os.ReadFile(d.source)
	if err != nil {
		return "", err
	}
	path := filepath.Join(destDir, "downloaded.iso")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	d.downloaded = path
	return path, nil
}

type fakeVerifier struct {
	err    error
	called bool
}

func (v *fakeVerifier) Verify(context.Context, string, string) error {
	v.called = true
	return v.err
}

// scriptDecider answers every workflow decision from fixed fields.
type scriptDecider struct {
	diskPath        string // empty picks the first candidate
	confirm         bool
	rootSize        datasize.ByteSize
	name            string // empty accepts the suggestion
	password        string
	console         string
	setDefault      bool
	continueUnsaved bool
}

func (d *scriptDecider) SelectDisk(candidates []disk.Disk) (disk.Disk, error) {
	if d.diskPath != "" {
		for _, c := range candidates {
			if c.Path == d.diskPath {
				return c, nil
			}
		}
	}
	return candidates[0], nil
}

func (d *scriptDecider) ConfirmWipe(string) (bool, error) { return d.confirm, nil }

func (d *scriptDecider) RootSize(datasize.ByteSize) (datasize.ByteSize, error) {
	return d.rootSize, nil
}

func (d *scriptDecider) ImageName(suggested string) (string, error) {
	if d.name != "" {
		return d.name, nil
	}
	return suggested, nil
}

func (d *scriptDecider) Password() (string, error) { return d.password, nil }

func (d *scriptDecider) ConsoleType() (string, error) { return d.console, nil }

func (d *scriptDecider) SetDefaultBoot(string) (bool, error) { return d.setDefault, nil }

func (d *scriptDecider) ContinueUnsaved() (bool, error) { return d.continueUnsaved, nil }

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	for _, dir := range []string{"iso", "tmp", "medium"} {
		require.NoError(t, os.MkdirAll(filepath.Join(base, dir), 0755))
	}
	return &config.Config{
		ISOMountDir:     filepath.Join(base, "iso"),
		InstallRoot:     filepath.Join(base, "installation"),
		TempDir:         filepath.Join(base, "tmp"),
		LiveMediumDir:   filepath.Join(base, "medium"),
		MinDiskSize:     2 * datasize.GB,
		MinRootSize:     datasize.GB + 512*datasize.MB,
		DiskReserve:     2 * datasize.GB,
		EFISize:         512 * datasize.MB,
		LowMemThreshold: 4 * datasize.GB,
		DefaultPassword: "vyos",
		AdminUser:       "vyos",
	}
}

// seedLiveDir populates dir with the live/ payload of an image: kernel,
// initrd, root filesystem and version metadata.
func seedLiveDir(t *testing.T, dir, metadata string) {
	t.Helper()
	liveDir := filepath.Join(dir, "live")
	require.NoError(t, os.MkdirAll(liveDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(liveDir, "vmlinuz-6.6.0"), []byte("kernel"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(liveDir, "initrd.img-6.6.0"), []byte("initrd"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(liveDir, "filesystem.squashfs"), []byte("rootfs"), 0644))
	if metadata != "" {
		require.NoError(t, os.WriteFile(filepath.Join(liveDir, "version.json"), []byte(metadata), 0644))
	}
}

func testWorkflowLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
