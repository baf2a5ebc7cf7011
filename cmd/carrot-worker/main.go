package main

import (
	"context"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/filswan/go-swan-lib/logs"
	"github.com/gin-gonic/gin"
	cors "github.com/itsjamie/gin-cors"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/carrotlabs/go-carrot-market/build"
	"github.com/carrotlabs/go-carrot-market/internal/worker"
	"github.com/carrotlabs/go-carrot-market/util"
)

const defaultPort = ":8086"

func main() {
	app := &cli.App{
		Name:                 "carrot-worker",
		Usage:                "Reference worker daemon: executes marketplace jobs and uploads their artifacts.",
		EnableBashCompletion: true,
		Version:              build.UserVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				EnvVars: []string{"WORKER_PORT"},
				Usage:   "listen address for the worker api",
				Value:   defaultPort,
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "path to a .env file with the MCS upload credentials",
				Value: ".env",
			},
		},
		Action: run,
	}
	app.Setup()

	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
	}
}

func run(cctx *cli.Context) error {
	if err := godotenv.Load(cctx.String("env-file")); err != nil {
		logs.GetLogger().Warnf("no env file loaded: %v", err)
	}

	dockerService, err := worker.NewDockerService()
	if err != nil {
		logs.GetLogger().Warnf("docker unavailable, containerized jobs disabled: %v", err)
		dockerService = nil
	} else {
		go dockerService.StartCleanupTicker(context.Background(), 2*time.Hour)
	}

	uploader := worker.UploaderFromEnv()
	if uploader == nil {
		logs.GetLogger().Warn("MCS_API_KEY not set, artifact upload left to the market client")
	}

	handler := worker.NewHandler(dockerService, uploader)

	r := gin.Default()
	r.Use(cors.Middleware(cors.Config{
		Origins:         "*",
		Methods:         "GET, PUT, POST, DELETE",
		RequestHeaders:  "Origin, Authorization, Content-Type",
		ExposedHeaders:  "",
		MaxAge:          50 * time.Second,
		ValidateHeaders: false,
	}))
	r.GET("/health", handler.Health)
	r.POST("/process-job", handler.ProcessJob)

	port := cctx.String("port")
	if port != "" && port[0] != ':' {
		port = ":" + port
	}
	color.Green("carrot-worker %s listening on %s", build.UserVersion(), port)

	shutdownChan := make(chan struct{})
	httpStopper, err := util.ServeHttp(r, "worker-api", port)
	if err != nil {
		logs.GetLogger().Fatalf("failed to start worker-api endpoint: %s", err)
	}

	finishCh := util.MonitorShutdown(shutdownChan,
		util.ShutdownHandler{Component: "worker-api", StopFunc: httpStopper},
	)
	<-finishCh

	return nil
}
