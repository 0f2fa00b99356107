// Command image-installer installs a system image to permanent storage or
// adds another bootable image next to the installed ones.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"

	"github.com/vyos/image-tools/lib/auth"
	"github.com/vyos/image-tools/lib/cmdrun"
	"github.com/vyos/image-tools/lib/compat"
	"github.com/vyos/image-tools/lib/config"
	"github.com/vyos/image-tools/lib/disk"
	"github.com/vyos/image-tools/lib/grub"
	"github.com/vyos/image-tools/lib/platform"
	"github.com/vyos/image-tools/lib/remote"
	"github.com/vyos/image-tools/lib/workflow"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(logger)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("Stopped by Ctrl+C")
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type flags struct {
	action       string
	noPrompt     bool
	imagePath    string
	vrf          string
	username     string
	password     string
	force        bool
	targetDisk   string
	vyosPassword string
	rootSizeGB   float64
	imageName    string
	noSetDefault bool
	consoleType  string
}

func newRootCommand(logger *slog.Logger) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:           "image-installer",
		Short:         "Install new system images",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch f.action {
			case "install":
				// Installation wipes a disk; it is always non-interactive at
				// the CLI level so scripted runs never hang on a prompt.
				f.noPrompt = true
				return runInstall(cmd.Context(), logger, &f)
			case "add":
				if f.imagePath == "" {
					return errors.New("a path to image is required for add action")
				}
				return runAdd(cmd.Context(), logger, &f)
			default:
				return fmt.Errorf("unknown action %q, expected install or add", f.action)
			}
		},
	}

	cmd.Flags().StringVar(&f.action, "action", "", "action to perform with an image (install or add)")
	cmd.Flags().BoolVar(&f.noPrompt, "no-prompt", false, "perform action non-interactively")
	cmd.Flags().StringVar(&f.imagePath, "image-path", "", "a path (HTTP or local file) to an image that needs to be installed")
	cmd.Flags().StringVar(&f.vrf, "vrf", "", "vrf name for image download")
	cmd.Flags().StringVar(&f.username, "username", "", "username for image download")
	cmd.Flags().StringVar(&f.password, "password", "", "password for image download")
	cmd.Flags().BoolVar(&f.force, "force", false, "ignore flavor compatibility requirements")
	cmd.Flags().StringVar(&f.targetDisk, "target-disk", "", "target disk for installation (e.g. /dev/sda)")
	cmd.Flags().StringVar(&f.vyosPassword, "vyos-password", "", "password for the vyos user")
	cmd.Flags().Float64Var(&f.rootSizeGB, "root-size-gb", 0, "root partition size in GB (default: use all available space)")
	cmd.Flags().StringVar(&f.imageName, "image-name", "", "name for the installed image")
	cmd.Flags().BoolVar(&f.noSetDefault, "no-set-default", false, "do not set new image as default boot image")
	cmd.Flags().StringVar(&f.consoleType, "console-type", "kvm", "console type (kvm or serial)")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}

func buildDeps(logger *slog.Logger, cfg *config.Config, decider workflow.Decider) workflow.Deps {
	runner := cmdrun.New()
	return workflow.Deps{
		Config:    cfg,
		Host:      platform.NewHost(runner),
		Inventory: disk.NewInventory(runner),
		Planner: &disk.Planner{
			Reserve: cfg.DiskReserve,
			EFISize: cfg.EFISize,
			MinRoot: cfg.MinRootSize,
			Logger:  logger,
		},
		Partitioner: disk.NewPartitioner(runner),
		Mounter:     disk.NewMounter(runner),
		Boot:        grub.New(runner),
		Hasher:      auth.NewHasher(),
		Downloader:  remote.NewDownloader(logger),
		Verifier:    compat.NewVerifier(runner),
		Decider:     decider,
		Logger:      logger,
	}
}

func runInstall(ctx context.Context, logger *slog.Logger, f *flags) error {
	cfg := config.Load()

	decider := &workflow.FlagDecider{
		TargetDisk:    f.targetDisk,
		RootSizeBytes: rootSizeBytes(f.rootSizeGB),
		Name:          f.imageName,
		Pass:          f.vyosPassword,
		Console:       f.consoleType,
		SetDefault:    !f.noSetDefault,
		AcceptUnsaved: true,
		Logger:        logger,
	}

	installer := workflow.NewInstaller(buildDeps(logger, cfg, decider))
	return installer.Run(ctx)
}

func runAdd(ctx context.Context, logger *slog.Logger, f *flags) error {
	cfg := config.Load()

	var decider workflow.Decider
	if f.noPrompt {
		decider = &workflow.FlagDecider{
			Name:          f.imageName,
			SetDefault:    !f.noSetDefault,
			AcceptUnsaved: true,
			Logger:        logger,
		}
	} else {
		decider = &workflow.InteractiveDecider{
			PresetName:     f.imageName,
			ForceNoDefault: f.noSetDefault,
		}
	}

	adder := workflow.NewAdder(buildDeps(logger, cfg, decider), workflow.AddOptions{
		ImagePath: f.imagePath,
		VRF:       f.vrf,
		Username:  f.username,
		Password:  f.password,
		Force:     f.force,
	})
	return adder.Run(ctx)
}

// rootSizeBytes converts the --root-size-gb value; zero or negative means
// use all available space.
func rootSizeBytes(gb float64) datasize.ByteSize {
	if gb <= 0 {
		return 0
	}
	return datasize.ByteSize(gb * float64(datasize.GB))
}
