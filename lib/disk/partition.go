package disk

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/c2h5oh/datasize"

	"github.com/vyos/image-tools/lib/cmdrun"
)

// Partitioner applies a Plan to a disk. Irreversible: callers must have
// obtained confirmation before invoking.
type Partitioner interface {
	// Apply destroys any existing partition table on the plan's disk, writes
	// a fresh GPT table and creates the planned partitions. Returns the
	// created partition device paths in plan order.
	Apply(ctx context.Context, plan Plan) ([]string, error)

	// Format creates the planned filesystems on the devices returned by
	// Apply, in the same order.
	Format(ctx context.Context, plan Plan, devices []string) error
}

type sgdiskPartitioner struct {
	runner cmdrun.Runner
}

// NewPartitioner returns a Partitioner shelling out to sgdisk and mkfs.
func NewPartitioner(runner cmdrun.Runner) Partitioner {
	return &sgdiskPartitioner{runner: runner}
}

// gptTypeCodes maps partition purposes to sgdisk type codes.
var gptTypeCodes = map[Purpose]string{
	PurposeEFI:  "ef00",
	PurposeRoot: "8300",
}

func (pt *sgdiskPartitioner) Apply(ctx context.Context, plan Plan) ([]string, error) {
	if _, err := pt.runner.Run(ctx, "sgdisk", "--zap-all", plan.Disk); err != nil {
		return nil, fmt.Errorf("create partition table on %s: %w", plan.Disk, err)
	}

	devices := make([]string, 0, len(plan.Entries))
	for i, entry := range plan.Entries {
		number := i + 1
		end := fmt.Sprintf("+%dM", uint64(entry.Size/datasize.MB))
		if i == len(plan.Entries)-1 {
			// Last partition takes the rest of the usable space, which also
			// absorbs alignment rounding from the earlier partitions.
			end = "0"
		}
		_, err := pt.runner.Run(ctx, "sgdisk",
			"-n", fmt.Sprintf("%d:0:%s", number, end),
			"-t", fmt.Sprintf("%d:%s", number, gptTypeCodes[entry.Purpose]),
			"-c", fmt.Sprintf("%d:%s", number, entry.Label),
			plan.Disk)
		if err != nil {
			return nil, fmt.Errorf("create %s partition on %s: %w", entry.Purpose, plan.Disk, err)
		}
		devices = append(devices, PartitionPath(plan.Disk, number))
	}

	// Let the kernel pick up the new table before mkfs.
	if _, err := pt.runner.Run(ctx, "partprobe", plan.Disk); err != nil {
		return nil, fmt.Errorf("reread partition table on %s: %w", plan.Disk, err)
	}

	return devices, nil
}

func (pt *sgdiskPartitioner) Format(ctx context.Context, plan Plan, devices []string) error {
	for i, entry := range plan.Entries {
		if err := pt.mkfs(ctx, devices[i], entry); err != nil {
			return err
		}
	}
	return nil
}

func (pt *sgdiskPartitioner) mkfs(ctx context.Context, device string, entry PlanEntry) error {
	var args []string
	switch entry.Filesystem {
	case "vfat":
		args = []string{"-n", entry.Label, device}
	case "ext4":
		args = []string{"-F", "-L", entry.Label, device}
	default:
		args = []string{device}
	}
	if _, err := pt.runner.Run(ctx, "mkfs."+entry.Filesystem, args...); err != nil {
		return fmt.Errorf("create %s filesystem on %s: %w", entry.Filesystem, device, err)
	}
	return nil
}

// PartitionPath returns the device path of partition number n on a disk,
// inserting the "p" separator for devices whose name ends in a digit
// (nvme0n1 -> nvme0n1p1, sda -> sda1).
func PartitionPath(diskPath string, n int) string {
	trimmed := strings.TrimRight(diskPath, "/")
	if len(trimmed) > 0 && unicode.IsDigit(rune(trimmed[len(trimmed)-1])) {
		return fmt.Sprintf("%sp%d", trimmed, n)
	}
	return fmt.Sprintf("%s%d", trimmed, n)
}
