package main

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/archdroid/archbox/internal/config"
	"github.com/archdroid/archbox/internal/theme"
)

// runDoctor reports host facts and whether the installation is usable.
func runDoctor() error {
	applyDebugMode()

	cfg := loadConfig()
	manager := newManager(cfg, "")
	baseDir := cfg.ResolveBaseDir()

	rows := [][]string{
		{"go runtime", fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)},
	}

	if info, err := host.Info(); err == nil {
		rows = append(rows,
			[]string{"host", info.Hostname},
			[]string{"platform", fmt.Sprintf("%s %s (%s)", info.Platform, info.PlatformVersion, info.KernelArch)},
		)
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		rows = append(rows, []string{"memory", fmt.Sprintf("%s total, %s available",
			humanBytes(int64(vm.Total)), humanBytes(int64(vm.Available)))})
	}

	needed := int64(cfg.Bootstrap.MinFreeMB) << 20
	if usage, err := disk.Usage(baseDir); err == nil {
		verdict := "ok"
		if int64(usage.Free) < needed {
			verdict = fmt.Sprintf("below the %s bootstrap requirement", humanBytes(needed))
		}
		rows = append(rows, []string{"free space", fmt.Sprintf("%s at %s (%s)",
			humanBytes(int64(usage.Free)), baseDir, verdict)})
	} else {
		rows = append(rows, []string{"free space", fmt.Sprintf("unavailable: %v", err)})
	}

	installed := "no (run `archbox bootstrap`)"
	if manager.Installed() {
		installed = "yes, " + manager.RootfsDir()
	}
	rows = append(rows, []string{"rootfs installed", installed})

	if path, err := config.Path(); err == nil {
		rows = append(rows, []string{"config", path})
	}
	rows = append(rows, []string{"shell", cfg.ResolveShell()})

	printDoctorTable(rows)
	return nil
}

func printDoctorTable(rows [][]string) {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.CLITableHeader()).
		Padding(0, 1)

	cellStyle := lipgloss.NewStyle().
		Padding(0, 1)

	keyStyle := cellStyle.Foreground(theme.CLITableKey())

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.CLITableDim())).
		Headers("Check", "Result").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return keyStyle
			}
			return cellStyle
		})

	fmt.Println()
	fmt.Println(lipgloss.NewStyle().Bold(true).Foreground(theme.CLITableBorder()).Render("archbox doctor"))
	fmt.Println(t.Render())
}
