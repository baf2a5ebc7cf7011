package main

import (
	"os"
	"strconv"
	"time"

	"github.com/filswan/go-mcs-sdk/mcs/api/common/logs"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	cors "github.com/itsjamie/gin-cors"
	"github.com/urfave/cli/v2"

	"github.com/carrotlabs/go-carrot-market/conf"
	"github.com/carrotlabs/go-carrot-market/internal/initializer"
	"github.com/carrotlabs/go-carrot-market/routers"
	"github.com/carrotlabs/go-carrot-market/util"
)

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "Start the marketplace client daemon",
	Action: func(cctx *cli.Context) error {
		logs.GetLogger().Info("Start in marketplace client mode.")

		repoPath := cctx.String(FlagRepo)
		os.Setenv("CARROT_PATH", repoPath)
		service := initializer.ProjectInit(repoPath)

		r := gin.Default()
		r.Use(cors.Middleware(cors.Config{
			Origins:         "*",
			Methods:         "GET, PUT, POST, DELETE",
			RequestHeaders:  "Origin, Authorization, Content-Type",
			ExposedHeaders:  "",
			MaxAge:          50 * time.Second,
			ValidateHeaders: false,
		}))
		pprof.Register(r)

		v1 := r.Group("/api/v1")
		routers.MarketManager(v1.Group("/market"), service)

		shutdownChan := make(chan struct{})
		httpStopper, err := util.ServeHttp(r, "market-api", ":"+strconv.Itoa(conf.GetConfig().API.Port))
		if err != nil {
			logs.GetLogger().Fatalf("failed to start market-api endpoint: %s", err)
		}

		finishCh := util.MonitorShutdown(shutdownChan,
			util.ShutdownHandler{Component: "market-api", StopFunc: httpStopper},
		)
		<-finishCh

		return nil
	},
}
