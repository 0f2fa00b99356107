package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/charmbracelet/huh"
	"github.com/samber/lo"

	"github.com/vyos/image-tools/lib/auth"
	"github.com/vyos/image-tools/lib/disk"
	"github.com/vyos/image-tools/lib/registry"
)

// InteractiveDecider asks the operator at a terminal. Password strength is
// enforced here, not merely advised: a weak answer is re-asked.
type InteractiveDecider struct {
	// PresetName, when set, overrides the derived image name without asking.
	PresetName string
	// ForceNoDefault suppresses the default-pointer prompt and leaves the
	// default boot selection untouched.
	ForceNoDefault bool
}

var _ Decider = (*InteractiveDecider)(nil)

func runField(field huh.Field) error {
	return huh.NewForm(huh.NewGroup(field)).Run()
}

func (d *InteractiveDecider) SelectDisk(candidates []disk.Disk) (disk.Disk, error) {
	labels := lo.Map(candidates, func(c disk.Disk, _ int) string {
		return fmt.Sprintf("%s (%s)", c.Path, c.Size.HumanReadable())
	})

	var selected string
	err := runField(huh.NewSelect[string]().
		Title("Which disk should be used for installation?").
		Options(huh.NewOptions(labels...)...).
		Value(&selected))
	if err != nil {
		return disk.Disk{}, err
	}

	idx := lo.IndexOf(labels, selected)
	return candidates[idx], nil
}

func (d *InteractiveDecider) ConfirmWipe(diskPath string) (bool, error) {
	var confirmed bool
	err := runField(huh.NewConfirm().
		Title(fmt.Sprintf("Installation will delete all data on %s. Continue?", diskPath)).
		Value(&confirmed))
	return confirmed, err
}

func (d *InteractiveDecider) RootSize(available datasize.ByteSize) (datasize.ByteSize, error) {
	var useAll bool
	err := runField(huh.NewConfirm().
		Title(fmt.Sprintf("Would you like to use all the free space on the drive? (%s)", available.HumanReadable())).
		Value(&useAll))
	if err != nil {
		return 0, err
	}
	if useAll {
		return 0, nil
	}

	for {
		var answer string
		err = runField(huh.NewInput().
			Title("Please specify the size (in GB) of the root partition (min is 1.5 GB)").
			Value(&answer))
		if err != nil {
			return 0, err
		}
		if size, ok := parseRootSize(answer); ok {
			return size, nil
		}
		fmt.Println("Invalid size, please enter a number of GB (e.g. 10 or 1.5).")
	}
}

// parseRootSize accepts a bare number of GB ("10", "1.5") or a suffixed size
// ("10GB", "512MB").
func parseRootSize(answer string) (datasize.ByteSize, bool) {
	answer = strings.TrimSpace(answer)
	if gb, err := strconv.ParseFloat(answer, 64); err == nil && gb > 0 {
		return datasize.ByteSize(gb * float64(datasize.GB)), true
	}
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(answer)); err == nil && size > 0 {
		return size, true
	}
	return 0, false
}

func (d *InteractiveDecider) ImageName(suggested string) (string, error) {
	if d.PresetName != "" {
		return d.PresetName, nil
	}
	for {
		name := suggested
		err := runField(huh.NewInput().
			Title("What would you like to name this image?").
			Value(&name))
		if err != nil {
			return "", err
		}
		if registry.ValidateName(name) == nil {
			return name, nil
		}
		fmt.Println("The suggested name is unsupported!\n" +
			"It must be between 1 and 64 characters long and can contain only alphanumeric characters, hyphens, and underscores.")
	}
}

func (d *InteractiveDecider) Password() (string, error) {
	for {
		var password, confirmation string
		err := runField(huh.NewInput().
			Title(`Please enter a password for the "vyos" user`).
			EchoMode(huh.EchoModePassword).
			Value(&password))
		if err != nil {
			return "", err
		}
		if auth.Evaluate(password) == auth.StrengthWeak {
			fmt.Printf("Password must be at least %d characters long\n", auth.MinPasswordLength)
			continue
		}

		err = runField(huh.NewInput().
			Title(`Please confirm password for the "vyos" user`).
			EchoMode(huh.EchoModePassword).
			Value(&confirmation))
		if err != nil {
			return "", err
		}
		if password == confirmation {
			return password, nil
		}
		fmt.Println("Passwords do not match, try again.")
	}
}

func (d *InteractiveDecider) ConsoleType() (string, error) {
	var console string
	err := runField(huh.NewSelect[string]().
		Title("What console should be used by default?").
		Options(
			huh.NewOption("KVM", "kvm"),
			huh.NewOption("Serial", "serial"),
		).
		Value(&console))
	return console, err
}

func (d *InteractiveDecider) SetDefaultBoot(name string) (bool, error) {
	if d.ForceNoDefault {
		return false, nil
	}
	var setDefault bool
	err := runField(huh.NewConfirm().
		Title(fmt.Sprintf("Would you like to set the new image %q as the default one for boot?", name)).
		Value(&setDefault))
	return setDefault, err
}

// ContinueUnsaved always declines: an interactive upgrade over uncommitted
// configuration changes stops so the operator can save or revert first. Only
// an explicitly non-interactive run proceeds past this gate.
func (d *InteractiveDecider) ContinueUnsaved() (bool, error) {
	return false, nil
}
