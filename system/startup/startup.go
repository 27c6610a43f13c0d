package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thatsimonsguy/hardware-ui/internal/config"
	"github.com/thatsimonsguy/hardware-ui/internal/pinctrl"
)

// BootScript renders a script that parks every line at its idle level before
// the service starts: ADC deselected, clock and MOSI low, lamp off.
func BootScript(cfg config.Config) string {
	var lines []string
	lines = append(lines, "#!/bin/bash", "", "# hardware-ui GPIO pin configuration at boot", "")

	write := func(label string, pin int, opts []string) {
		lines = append(lines, fmt.Sprintf("# %s", label))
		lines = append(lines, fmt.Sprintf("pinctrl set %d %s", pin, strings.Join(opts, " ")))
		lines = append(lines, "")
	}

	write("spi_clock", *cfg.GPIO.SPIClock, pinctrl.OutputOpts(false))
	write("spi_chip_select", *cfg.GPIO.SPIChipSelect, pinctrl.OutputOpts(true))
	write("spi_mosi", *cfg.GPIO.SPIMOSI, pinctrl.OutputOpts(false))
	write("spi_miso", *cfg.GPIO.SPIMISO, pinctrl.InputOpts())
	write("lamp", *cfg.GPIO.Lamp, pinctrl.OutputOpts(false))

	return strings.Join(lines, "\n") + "\n"
}

func WriteStartupScript(cfg config.Config) error {
	return os.WriteFile(cfg.Install.BootScriptPath, []byte(BootScript(cfg)), 0755)
}

func GPIOServiceUnit(cfg config.Config) string {
	return fmt.Sprintf(`[Unit]
Description=Configure hardware-ui GPIO pins at boot
After=network.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, cfg.Install.BootScriptPath)
}

func MainServiceUnit(cfg config.Config) string {
	gpioUnitName := filepath.Base(cfg.Install.GPIOServicePath)

	return fmt.Sprintf(`[Unit]
Description=hardware-ui knobs and connection lamp
After=%s network-online.target
Requires=%s

[Service]
Type=simple
User=%s
WorkingDirectory=%s
ExecStart=%s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, gpioUnitName, gpioUnitName, cfg.Install.User, cfg.Install.WorkingDir, cfg.Install.ExecStart)
}

func InstallStartupService(cfg config.Config) error {
	return os.WriteFile(cfg.Install.GPIOServicePath, []byte(GPIOServiceUnit(cfg)), 0644)
}

func InstallMainService(cfg config.Config) error {
	return os.WriteFile(cfg.Install.MainServicePath, []byte(MainServiceUnit(cfg)), 0644)
}

func RunStartupScript(cfg config.Config) error {
	cmd := exec.Command("/bin/bash", cfg.Install.BootScriptPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
