package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/carrotlabs/go-carrot-market/models"
	"github.com/carrotlabs/go-carrot-market/money"
	"github.com/carrotlabs/go-carrot-market/yaml"
)

var jobCmd = &cli.Command{
	Name:  "job",
	Usage: "Post, claim and run compute jobs",
	Subcommands: []*cli.Command{
		jobList,
		jobPost,
		jobClaim,
		jobRun,
		jobComplete,
		jobRetry,
		jobCancel,
	},
}

var jobList = &cli.Command{
	Name:  "list",
	Usage: "List jobs on the marketplace",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "scope",
			Usage: "which jobs to show: open, consumer or provider",
			Value: "open",
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
		var jobs []models.Job
		switch cctx.String("scope") {
		case "open":
			jobs = snap.OpenJobs
		case "consumer":
			jobs = snap.ConsumerJobs
		case "provider":
			jobs = snap.ProviderJobs
		default:
			return fmt.Errorf("unknown scope: %s, want open, consumer or provider", cctx.String("scope"))
		}

		var jobData [][]string
		var rowColorList []RowColor
		for index, job := range jobs {
			jobData = append(jobData, []string{
				strconv.FormatInt(job.ID, 10),
				strconv.FormatInt(job.GpuID, 10),
				truncate(job.Description, 40),
				strconv.FormatInt(job.ComputeHours, 10) + " h",
				money.ToXLM(job.PaymentAmount) + " XLM",
				job.Status.String(),
				shortAddress(job.Consumer),
				shortAddress(job.Provider),
			})

			var rowColor []tablewriter.Colors
			switch job.Status {
			case models.JobStatusOpen:
				rowColor = []tablewriter.Colors{{tablewriter.Bold, tablewriter.FgYellowColor}}
			case models.JobStatusClaimed, models.JobStatusCompleted:
				rowColor = []tablewriter.Colors{{tablewriter.Bold, tablewriter.FgGreenColor}}
			default:
				rowColor = []tablewriter.Colors{{tablewriter.Bold, tablewriter.FgRedColor}}
			}
			rowColorList = append(rowColorList, RowColor{
				row:    index,
				column: []int{5},
				color:  rowColor,
			})
		}

		header := []string{"JOB ID", "GPU ID", "DESCRIPTION", "HOURS", "PAYMENT", "STATUS", "CONSUMER", "PROVIDER"}
		fmt.Println("")
		NewVisualTable(header, jobData, rowColorList).Generate()

		return nil
	},
}

var jobPost = &cli.Command{
	Name:  "post",
	Usage: "Post a job and escrow the payment",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:  "gpu-id",
			Usage: "id of the GPU to rent",
		},
		&cli.Int64Flag{
			Name:  "hours",
			Usage: "compute hours to reserve",
			Value: 1,
		},
		&cli.StringFlag{
			Name:  "description",
			Usage: "what the job should do",
		},
		&cli.StringFlag{
			Name:  "from-file",
			Usage: "path to a job yaml file, overrides the other flags",
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)

		gpuID := cctx.Int64("gpu-id")
		hours := cctx.Int64("hours")
		description := cctx.String("description")

		if jobFilePath := cctx.String("from-file"); jobFilePath != "" {
			jobFile, err := yaml.HandlerJobFile(jobFilePath)
			if err != nil {
				return err
			}
			description, err = jobFile.EncodeDescription()
			if err != nil {
				return err
			}
			gpuID = jobFile.GpuID
			hours = jobFile.ComputeHours
		}

		service, err := setupService(cctx)
		if err != nil {
			return err
		}
		jobID, err := service.PostJob(ctx, gpuID, description, hours)
		if err != nil {
			return err
		}

		fmt.Printf("posted job %d on gpu %d for %d hours\n", jobID, gpuID, hours)
		return nil
	},
}

var jobClaim = &cli.Command{
	Name:      "claim",
	Usage:     "Claim an open job as the provider",
	ArgsUsage: "[job_id]",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		jobID, err := jobIDArg(cctx)
		if err != nil {
			return err
		}

		service, err := setupService(cctx)
		if err != nil {
			return err
		}
		if err := service.Resync(ctx); err != nil {
			return fmt.Errorf("failed to sync ledger state, error: %+v", err)
		}
		return service.ClaimJob(ctx, jobID)
	},
}

var jobRun = &cli.Command{
	Name:      "run",
	Usage:     "Execute a claimed job on the worker and complete it on the ledger",
	ArgsUsage: "[job_id]",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		jobID, err := jobIDArg(cctx)
		if err != nil {
			return err
		}

		service, err := setupService(cctx)
		if err != nil {
			return err
		}
		if err := service.RunJob(ctx, jobID); err != nil {
			return err
		}

		fmt.Printf("job %d executed, transcript at %s\n", jobID, service.TranscriptPath(jobID))
		return nil
	},
}

var jobComplete = &cli.Command{
	Name:      "complete",
	Usage:     "Complete a claimed job with an externally produced result reference",
	ArgsUsage: "[job_id] [result_ref]",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		if cctx.NArg() != 2 {
			return fmt.Errorf("need two params: the job id and the result reference")
		}

		jobID, err := strconv.ParseInt(cctx.Args().Get(0), 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse job id: %s", cctx.Args().Get(0))
		}

		service, err := setupService(cctx)
		if err != nil {
			return err
		}
		if err := service.Resync(ctx); err != nil {
			return fmt.Errorf("failed to sync ledger state, error: %+v", err)
		}
		return service.CompleteJob(ctx, jobID, cctx.Args().Get(1))
	},
}

var jobRetry = &cli.Command{
	Name:      "retry",
	Usage:     "Retry upload and completion of an executed job without re-running it",
	ArgsUsage: "[job_id]",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		jobID, err := jobIDArg(cctx)
		if err != nil {
			return err
		}

		service, err := setupService(cctx)
		if err != nil {
			return err
		}
		return service.RetryFinalize(ctx, jobID)
	},
}

var jobCancel = &cli.Command{
	Name:      "cancel",
	Usage:     "Cancel an open job and refund the escrow",
	ArgsUsage: "[job_id]",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		jobID, err := jobIDArg(cctx)
		if err != nil {
			return err
		}

		service, err := setupService(cctx)
		if err != nil {
			return err
		}
		if err := service.Resync(ctx); err != nil {
			return fmt.Errorf("failed to sync ledger state, error: %+v", err)
		}
		return service.CancelJob(ctx, jobID)
	},
}

var infoCmd = &cli.Command{
	Name:  "info",
	Usage: "Show provider earnings and platform fee balance",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		service, err := setupService(cctx)
		if err != nil {
			return err
		}
		if err := service.Resync(ctx); err != nil {
			return fmt.Errorf("failed to sync ledger state, error: %+v", err)
		}

		earnings := service.Earnings()
		fees, err := service.PlatformFees(ctx)
		if err != nil {
			return err
		}

		var infoData [][]string
		infoData = append(infoData, []string{"COMPLETED JOBS:", strconv.Itoa(earnings.CompletedJobs)})
		infoData = append(infoData, []string{"ACTIVE JOBS:", strconv.Itoa(earnings.ActiveJobs)})
		infoData = append(infoData, []string{"TOTAL JOBS:", strconv.Itoa(earnings.TotalJobs)})
		infoData = append(infoData, []string{"EARNED:", earnings.EarnedXLM + " XLM"})
		infoData = append(infoData, []string{"PLATFORM FEES:", money.ToXLM(fees) + " XLM"})

		header := []string{"PROVIDER SUMMARY", ""}
		NewVisualTable(header, infoData, []RowColor{}).Generate()

		notifications := service.Notifications()
		if len(notifications) > 0 {
			fmt.Println("")
			for _, notification := range notifications {
				fmt.Printf("  %s  %s\n", notification.CreatedAt.Format("15:04:05"), notification.Message)
			}
		}
		return nil
	},
}

func jobIDArg(cctx *cli.Context) (int64, error) {
	if cctx.NArg() != 1 {
		return 0, fmt.Errorf("incorrect number of arguments, got %d, missing args: job_id", cctx.NArg())
	}
	jobID, err := strconv.ParseInt(cctx.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse job id: %s", cctx.Args().First())
	}
	return jobID, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
