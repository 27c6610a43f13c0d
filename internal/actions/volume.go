// Package actions holds the side effects the knobs trigger: mixer volume and
// skipping to the next track.
package actions

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/thatsimonsguy/hardware-ui/internal/config"
)

// runCommand is swapped out in tests.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Mixer sets the playback volume through amixer.
type Mixer struct {
	cfg config.Volume
}

func NewMixer(cfg config.Volume) *Mixer {
	return &Mixer{cfg: cfg}
}

// Args returns the full command line for a volume change.
func (m *Mixer) Args(percent int) []string {
	args := []string{m.cfg.Command, "cset", m.cfg.Control, "--", fmt.Sprintf("%d%%", percent)}
	if m.cfg.Sudo {
		args = append([]string{"sudo"}, args...)
	}
	return args
}

func (m *Mixer) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("volume %d out of range", percent)
	}

	args := m.Args(percent)
	out, err := runCommand(ctx, args[0], args[1:]...)
	if err != nil {
		return fmt.Errorf("%s failed: %w (%s)", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
