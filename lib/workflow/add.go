package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vyos/image-tools/lib/compat"
	"github.com/vyos/image-tools/lib/disk"
	"github.com/vyos/image-tools/lib/registry"
	"github.com/vyos/image-tools/lib/remote"
	"github.com/vyos/image-tools/lib/version"
)

var (
	// ErrLiveBoot is the add precondition failure: adding an image requires
	// an installed system.
	ErrLiveBoot = errors.New(`the system is in live-boot mode, please use "install image" instead`)

	// ErrUnsavedCommits aborts before any destructive step when the running
	// configuration has uncommitted changes.
	ErrUnsavedCommits = errors.New("there are unsaved changes to the configuration, either save or revert before upgrade")
)

// AddState names one phase of the image-addition workflow.
type AddState int

const (
	StateAcquireSource AddState = iota
	StateMountSource
	StateReadVersion
	StateCheckUnsaved
	StateCheckCompat
	StateNameResolve
	StateCopyImage
	StateRegister
	StateAddDone
)

var addStateNames = map[AddState]string{
	StateAcquireSource: "acquire_source",
	StateMountSource:   "mount_source",
	StateReadVersion:   "read_version",
	StateCheckUnsaved:  "check_unsaved",
	StateCheckCompat:   "check_compat",
	StateNameResolve:   "name_resolve",
	StateCopyImage:     "copy_files",
	StateRegister:      "register",
	StateAddDone:       "done",
}

func (s AddState) String() string {
	return addStateNames[s]
}

// AddOptions parameterizes one image addition.
type AddOptions struct {
	ImagePath string // local path or URL
	VRF       string
	Username  string
	Password  string
	Force     bool // override flavor mismatches
}

// Adder is the image-addition workflow: acquire a source image, check it is
// compatible with the running system, and register it as another bootable
// image next to the existing ones.
type Adder struct {
	deps Deps
	opts AddOptions

	// run state
	sourcePath string
	newData    version.Data
	rootDir    string
	imageName  string
	cleanup    *cleanup
}

// NewAdder builds an Adder from its collaborators.
func NewAdder(deps Deps, opts AddOptions) *Adder {
	return &Adder{deps: deps, opts: opts}
}

// Run drives the add state machine. The source mount and any downloaded
// artifact are released on both success and failure paths.
func (a *Adder) Run(ctx context.Context) error {
	if a.deps.Host.IsLiveBoot() {
		return ErrLiveBoot
	}

	a.cleanup = newCleanup(a.deps.Mounter, a.deps.Logger)
	defer a.cleanup.run(ctx)

	steps := []struct {
		state AddState
		fn    func(context.Context) error
	}{
		{StateAcquireSource, a.acquireSource},
		{StateMountSource, a.mountSource},
		{StateReadVersion, a.readVersion},
		{StateCheckUnsaved, a.checkUnsaved},
		{StateCheckCompat, a.checkCompat},
		{StateNameResolve, a.resolveName},
		{StateCopyImage, a.copyFiles},
		{StateRegister, a.register},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.deps.Logger.Debug("entering state", "state", step.state.String())
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.state, err)
		}
	}

	a.deps.Logger.Info("image installed successfully", "image", a.imageName)
	return nil
}

func (a *Adder) acquireSource(ctx context.Context) error {
	path := a.opts.ImagePath

	if remote.IsURL(path) {
		downloaded, err := a.deps.Downloader.Download(ctx, path, a.deps.Config.TempDir, remote.Options{
			VRF:      a.opts.VRF,
			Username: a.opts.Username,
			Password: a.opts.Password,
		})
		if err != nil {
			return err
		}
		a.cleanup.pushRemove(downloaded)
		path = downloaded
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("image file not found: %s", path)
	}
	a.sourcePath = path

	// Cheap structural check before anything touches the mount table.
	if _, err := version.ProbeISO(path); err != nil {
		return err
	}

	sigPath, err := compat.FindSignature(path)
	if err != nil {
		return err
	}
	if sigPath == "" {
		a.deps.Logger.Warn("signature is not available")
		return nil
	}
	if err := a.deps.Verifier.Verify(ctx, path, sigPath); err != nil {
		return err
	}
	a.deps.Logger.Info("signature verified", "signature", sigPath)
	return nil
}

func (a *Adder) mountSource(ctx context.Context) error {
	mountDir := a.deps.Config.ISOMountDir
	if err := a.deps.Mounter.MountISO(ctx, a.sourcePath, mountDir); err != nil {
		return err
	}
	a.cleanup.pushMount(mountDir)
	return nil
}

func (a *Adder) readVersion(ctx context.Context) error {
	data, err := version.ReadMounted(a.deps.Config.ISOMountDir)
	if err != nil {
		return err
	}
	a.newData = data
	if data.Version == version.UnknownVersion {
		a.deps.Logger.Warn("image carries no version data, treating as a legacy image")
	}
	return nil
}

func (a *Adder) checkUnsaved(ctx context.Context) error {
	if !a.deps.Host.UnsavedChanges(ctx) {
		return nil
	}
	proceed, err := a.deps.Decider.ContinueUnsaved()
	if err != nil {
		return err
	}
	if !proceed {
		return ErrUnsavedCommits
	}
	return nil
}

func (a *Adder) checkCompat(ctx context.Context) error {
	current, err := a.deps.runningVersion()
	if err != nil {
		return fmt.Errorf("read running image version data: %w", err)
	}
	return compat.Check(current, a.newData, a.opts.Force, a.deps.Logger)
}

func (a *Adder) resolveName(ctx context.Context) error {
	rootDir, err := a.deps.Inventory.FindPersistence(ctx)
	if err != nil && !errors.Is(err, disk.ErrNoPersistence) {
		return err
	}
	if rootDir == "" {
		rootDir = "/"
	}
	a.rootDir = rootDir

	suggested := registry.DefaultName(a.newData.Version)
	name, err := a.deps.Decider.ImageName(suggested)
	if err != nil {
		return err
	}
	if err := registry.ValidateName(name); err != nil {
		return err
	}

	installed, err := registry.List(rootDir)
	if err != nil {
		return err
	}
	a.imageName = registry.UniqueName(name, installed)
	a.deps.Logger.Info("installing image", "image", a.imageName, "root", rootDir)
	return nil
}

func (a *Adder) copyFiles(ctx context.Context) error {
	record, err := registry.Create(a.rootDir, a.imageName)
	if err != nil {
		return err
	}
	liveDir := filepath.Join(a.deps.Config.ISOMountDir, "live")
	a.deps.Logger.Info("copying system files", "image", a.imageName)
	return copyImageFiles(liveDir, record.Dir, a.imageName)
}

func (a *Adder) register(ctx context.Context) error {
	if err := a.deps.Boot.AddVersion(a.imageName, a.rootDir); err != nil {
		return err
	}

	setDefault, err := a.deps.Decider.SetDefaultBoot(a.imageName)
	if err != nil {
		return err
	}
	if !setDefault {
		return nil
	}
	return a.deps.Boot.SetDefault(a.imageName, a.rootDir)
}
