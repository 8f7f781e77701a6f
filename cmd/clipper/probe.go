package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/agthegodyt04-cmyk/clipper/internal/capability"
	"github.com/agthegodyt04-cmyk/clipper/internal/config"
	"github.com/agthegodyt04-cmyk/clipper/internal/engine"
	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Report detected hardware, models, and engine chains",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		probe := capability.NewProbe(cfg)
		snap := probe.Snapshot(cmd.Context())
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		registry := engine.NewRegistry(cfg, probe, logger)

		hw := table.NewWriter()
		hw.SetOutputMirror(os.Stdout)
		hw.SetTitle("Hardware")
		hw.AppendRow(table.Row{"GPU", yesNo(snap.GPU.Available)})
		if snap.GPU.Available {
			hw.AppendRow(table.Row{"GPU name", snap.GPU.Name})
			hw.AppendRow(table.Row{"VRAM", fmt.Sprintf("%d MB", snap.GPU.VRAMMB)})
		}
		hw.AppendRow(table.Row{"Encoder (" + cfg.EncoderCommand + ")", yesNo(snap.EncoderAvailable)})
		hw.AppendRow(table.Row{"T2V enabled", fmt.Sprintf("%s (%s)", yesNo(snap.T2VEnabled), snap.T2VReason)})
		hw.Render()

		mt := table.NewWriter()
		mt.SetOutputMirror(os.Stdout)
		mt.SetTitle("Models (" + cfg.ModelDir + ")")
		mt.AppendHeader(table.Row{"Family", "Present", "Default", "Keys"})
		for _, family := range []string{
			capability.FamilyImage, capability.FamilyInpaint,
			capability.FamilyVideo, capability.FamilyText,
		} {
			status := snap.Models[family]
			mt.AppendRow(table.Row{family, yesNo(status.Present), status.Default, strings.Join(status.Keys, ", ")})
		}
		mt.Render()

		ct := table.NewWriter()
		ct.SetOutputMirror(os.Stdout)
		ct.SetTitle("Engine chains")
		ct.AppendHeader(table.Row{"Job type", "Draft chain", "HQ chain"})
		ct.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
			{Number: 3, WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		})
		for _, jt := range model.JobTypes {
			ct.AppendRow(table.Row{
				jt,
				chainString(registry.Resolve(cmd.Context(), jt, model.ModeDraft)),
				chainString(registry.Resolve(cmd.Context(), jt, model.ModeHQ)),
			})
		}
		ct.Render()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func chainString(chain []engine.Descriptor) string {
	if len(chain) == 0 {
		return "(none)"
	}
	parts := make([]string, len(chain))
	for i, d := range chain {
		parts[i] = fmt.Sprintf("%s[%s/%s]", d.Name, d.Device, d.Tier)
	}
	return strings.Join(parts, " -> ")
}
