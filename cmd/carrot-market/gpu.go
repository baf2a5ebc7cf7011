package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/carrotlabs/go-carrot-market/money"
)

var gpuCmd = &cli.Command{
	Name:  "gpu",
	Usage: "Manage GPU listings",
	Subcommands: []*cli.Command{
		gpuList,
		gpuRegister,
		gpuAvailability,
		gpuPrice,
	},
}

var gpuList = &cli.Command{
	Name:  "list",
	Usage: "List GPUs on the registry",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "mine",
			Usage:   "only show GPUs registered by this wallet",
			Aliases: []string{"m"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		service, err := setupService(cctx)
		if err != nil {
			return err
		}
		if err := service.Resync(ctx); err != nil {
			return fmt.Errorf("failed to sync ledger state, error: %+v", err)
		}

		snap := service.Snapshot()
		gpus := snap.AvailableGPUs
		if cctx.Bool("mine") {
			gpus = snap.MyGPUs
		}

		var gpuData [][]string
		var rowColorList []RowColor
		for index, gpu := range gpus {
			availability := "NO"
			if gpu.Available {
				availability = "YES"
			}
			gpuData = append(gpuData, []string{
				strconv.FormatInt(gpu.ID, 10),
				gpu.Model,
				strconv.FormatInt(gpu.VramGB, 10) + " GB",
				money.ToXLM(gpu.PricePerHour) + " XLM/h",
				availability,
				strconv.FormatInt(gpu.TotalJobs, 10),
				shortAddress(gpu.Provider),
			})

			var rowColor []tablewriter.Colors
			if gpu.Available {
				rowColor = []tablewriter.Colors{{tablewriter.Bold, tablewriter.FgGreenColor}}
			} else {
				rowColor = []tablewriter.Colors{{tablewriter.Bold, tablewriter.FgRedColor}}
			}
			rowColorList = append(rowColorList, RowColor{
				row:    index,
				column: []int{4},
				color:  rowColor,
			})
		}

		header := []string{"GPU ID", "MODEL", "VRAM", "PRICE", "AVAILABLE", "TOTAL JOBS", "PROVIDER"}
		fmt.Println("")
		NewVisualTable(header, gpuData, rowColorList).Generate()
		fmt.Printf("\nsynced at: %s\n", snap.SyncedAt.Format(time.RFC3339))

		return nil
	},
}

var gpuRegister = &cli.Command{
	Name:      "register",
	Usage:     "Register a GPU for rent",
	ArgsUsage: "[model] [vram_gb] [price_per_hour]",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		if cctx.NArg() != 3 {
			return fmt.Errorf("need three params: the model, vram in GB and hourly price in XLM")
		}

		model := cctx.Args().Get(0)
		vramGB, err := strconv.ParseInt(cctx.Args().Get(1), 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse vram: %s", cctx.Args().Get(1))
		}
		price := cctx.Args().Get(2)

		service, err := setupService(cctx)
		if err != nil {
			return err
		}
		gpuID, err := service.RegisterGpu(ctx, model, vramGB, price)
		if err != nil {
			return err
		}

		fmt.Printf("registered gpu %d: %s, %d GB, %s XLM/h\n", gpuID, model, vramGB, price)
		return nil
	},
}

var gpuAvailability = &cli.Command{
	Name:      "set-availability",
	Usage:     "Mark a GPU available or unavailable for new jobs",
	ArgsUsage: "[gpu_id] [true|false]",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		if cctx.NArg() != 2 {
			return fmt.Errorf("need two params: the gpu id and true or false")
		}

		gpuID, err := strconv.ParseInt(cctx.Args().Get(0), 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse gpu id: %s", cctx.Args().Get(0))
		}
		available, err := strconv.ParseBool(cctx.Args().Get(1))
		if err != nil {
			return fmt.Errorf("failed to parse availability: %s", cctx.Args().Get(1))
		}

		service, err := setupService(cctx)
		if err != nil {
			return err
		}
		return service.SetAvailability(ctx, gpuID, available)
	},
}

var gpuPrice = &cli.Command{
	Name:      "update-price",
	Usage:     "Update the hourly price of a GPU",
	ArgsUsage: "[gpu_id] [price_per_hour]",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		if cctx.NArg() != 2 {
			return fmt.Errorf("need two params: the gpu id and the new hourly price in XLM")
		}

		gpuID, err := strconv.ParseInt(cctx.Args().Get(0), 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse gpu id: %s", cctx.Args().Get(0))
		}

		service, err := setupService(cctx)
		if err != nil {
			return err
		}
		return service.UpdatePrice(ctx, gpuID, cctx.Args().Get(1))
	},
}

func shortAddress(addr string) string {
	if len(addr) < 12 {
		return addr
	}
	return addr[:5] + "..." + addr[len(addr)-4:]
}
