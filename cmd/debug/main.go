package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/thatsimonsguy/hardware-ui/db"
	"github.com/thatsimonsguy/hardware-ui/internal/adc"
	"github.com/thatsimonsguy/hardware-ui/internal/config"
	"github.com/thatsimonsguy/hardware-ui/internal/connectivity"
	"github.com/thatsimonsguy/hardware-ui/internal/gpio"
	"github.com/thatsimonsguy/hardware-ui/internal/knob"
	"github.com/thatsimonsguy/hardware-ui/internal/logging"
	"github.com/thatsimonsguy/hardware-ui/internal/pinctrl"
	"github.com/thatsimonsguy/hardware-ui/system/startup"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var configPath, command, level string
	var channel, limit, days int
	flag.StringVar(&configPath, "config-file", "config.json", "Path to hardware-ui config file")
	flag.StringVar(&command, "cmd", "", "Command to run: read-adc, lamp, pins, probe, events, prune, install")
	flag.IntVar(&channel, "channel", 0, "ADC channel for read-adc")
	flag.StringVar(&level, "level", "on", "Lamp level for lamp: on or off")
	flag.IntVar(&limit, "limit", 20, "Number of events to show")
	flag.IntVar(&days, "days", 30, "Keep this many days of events when pruning")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of hardware-ui-debug:")
		fmt.Println("  -config-file string\tPath to hardware-ui config file (default 'config.json')")
		fmt.Println("  -cmd string\tCommand to run: read-adc, lamp, pins, probe, events, prune, install")
		fmt.Println("  -channel int\tADC channel for read-adc (0-7)")
		fmt.Println("  -level string\tLamp level for lamp: on or off")
		fmt.Println("  -limit int\tNumber of events to show (default 20)")
		fmt.Println("  -days int\tKeep this many days of events when pruning (default 30)")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	cfg := config.FromFile(configPath)
	logging.Init(zerolog.WarnLevel, "")

	var err error
	switch command {
	case "read-adc":
		err = readADC(cfg, channel)
	case "lamp":
		if level != "on" && level != "off" {
			fmt.Println("Error: level must be on or off")
			os.Exit(1)
		}
		err = setLamp(cfg, level == "on")
	case "pins":
		err = showPins(cfg)
	case "probe":
		err = probe(cfg)
	case "events":
		err = showEvents(cfg, limit)
	case "prune":
		err = prune(cfg, days)
	case "install":
		err = install(cfg)
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("Command %s completed successfully\n", command)
}

func readADC(cfg config.Config, channel int) error {
	chip, err := gpio.Open(cfg.GPIOBackend, cfg.GPIOChip)
	if err != nil {
		return err
	}
	defer chip.Close()

	spi, err := gpio.RequestSPI(chip, cfg.GPIO)
	if err != nil {
		return err
	}
	defer spi.Close()

	sample, err := adc.NewMCP3008(spi).Read(adc.Channel(channel))
	if err != nil {
		return err
	}
	fmt.Printf("channel %d: %d (volume %d%%)\n", channel, sample, knob.VolumePercent(sample))
	return nil
}

func setLamp(cfg config.Config, on bool) error {
	chip, err := gpio.Open(cfg.GPIOBackend, cfg.GPIOChip)
	if err != nil {
		return err
	}
	defer chip.Close()

	lamp, err := gpio.RequestLamp(chip, cfg.GPIO)
	if err != nil {
		return err
	}
	defer lamp.Close()

	return lamp.Set(on)
}

func showPins(cfg config.Config) error {
	named := []struct {
		name string
		pin  *int
	}{
		{"spi_clock", cfg.GPIO.SPIClock},
		{"spi_mosi", cfg.GPIO.SPIMOSI},
		{"spi_miso", cfg.GPIO.SPIMISO},
		{"spi_chip_select", cfg.GPIO.SPIChipSelect},
		{"lamp", cfg.GPIO.Lamp},
	}

	pins := make([]int, 0, len(named))
	for _, n := range named {
		pins = append(pins, *n.pin)
	}
	states, err := pinctrl.ReadPins(pins...)
	if err != nil {
		return err
	}
	for i, ps := range states {
		fmt.Printf("%-16s GPIO%-3d mode=%s pull=%s drive=%s level=%s\n", named[i].name, ps.Pin, ps.Mode, ps.Pull, ps.Drive, ps.Level)
	}
	return nil
}

func probe(cfg config.Config) error {
	start := time.Now()
	reachable := connectivity.NewHTTPProbe(cfg.Connectivity.CheckURL).
		Reachable(context.Background(), cfg.Connectivity.ProbeTimeout())
	fmt.Printf("%s reachable=%t (%s)\n", cfg.Connectivity.CheckURL, reachable, time.Since(start).Round(time.Millisecond))
	return nil
}

func showEvents(cfg config.Config, limit int) error {
	conn, err := db.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	evs, err := db.RecentEvents(conn, limit)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		ts := ev.Time.Local().Format("2006-01-02 15:04:05.000")
		switch {
		case ev.Knob == "":
			fmt.Printf("%s %-12s reachable=%t\n", ts, ev.Kind, ev.Reachable)
		case ev.Error != "":
			fmt.Printf("%s %-12s knob=%s raw=%d value=%d error=%q\n", ts, ev.Kind, ev.Knob, ev.Raw, ev.Value, ev.Error)
		default:
			fmt.Printf("%s %-12s knob=%s raw=%d value=%d\n", ts, ev.Kind, ev.Knob, ev.Raw, ev.Value)
		}
	}
	return nil
}

func prune(cfg config.Config, days int) error {
	conn, err := db.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	removed, err := db.PruneEvents(conn, time.Now().AddDate(0, 0, -days))
	if err != nil {
		return err
	}
	fmt.Printf("removed %d events\n", removed)
	return nil
}

func install(cfg config.Config) error {
	if err := startup.WriteStartupScript(cfg); err != nil {
		return fmt.Errorf("write boot script: %w", err)
	}
	if err := startup.InstallStartupService(cfg); err != nil {
		return fmt.Errorf("install gpio service: %w", err)
	}
	if err := startup.InstallMainService(cfg); err != nil {
		return fmt.Errorf("install main service: %w", err)
	}
	return startup.RunStartupScript(cfg)
}
