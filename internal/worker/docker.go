package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/filswan/go-swan-lib/logs"
	"golang.org/x/xerrors"
)

type DockerService struct {
	c *client.Client
}

func NewDockerService() (*DockerService, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &DockerService{
		c: cli,
	}, nil
}

// RunImage pulls and runs a job image to completion, mounting outputDir at
// /output for artifacts, and returns the container's combined log output
// with ANSI noise stripped.
func (ds *DockerService) RunImage(ctx context.Context, imageName, outputDir string) (string, error) {
	pull, err := ds.c.ImagePull(ctx, imageName, types.ImagePullOptions{})
	if err != nil {
		return "", xerrors.Errorf("pulling %s: %w", imageName, err)
	}
	io.Copy(io.Discard, pull)
	pull.Close()

	hostConfig := &container.HostConfig{}
	if outputDir != "" {
		hostConfig.Binds = []string{outputDir + ":/output"}
	}
	created, err := ds.c.ContainerCreate(ctx, &container.Config{Image: imageName}, hostConfig, nil, nil, "")
	if err != nil {
		return "", xerrors.Errorf("creating container for %s: %w", imageName, err)
	}
	containerID := created.ID
	defer func() {
		if err := ds.c.ContainerRemove(context.Background(), containerID, types.ContainerRemoveOptions{Force: true}); err != nil {
			logs.GetLogger().Warnf("removing container %s: %v", containerID, err)
		}
	}()

	if err := ds.c.ContainerStart(ctx, containerID, types.ContainerStartOptions{}); err != nil {
		return "", xerrors.Errorf("starting container for %s: %w", imageName, err)
	}

	var exitCode int64
	waitCh, errCh := ds.c.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case status := <-waitCh:
		exitCode = status.StatusCode
	case err := <-errCh:
		return "", xerrors.Errorf("waiting for container %s: %w", containerID, err)
	case <-ctx.Done():
		return "", ctx.Err()
	}

	logReader, err := ds.c.ContainerLogs(ctx, containerID, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", xerrors.Errorf("reading logs of %s: %w", containerID, err)
	}
	defer logReader.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, logReader); err != nil {
		return "", xerrors.Errorf("demuxing logs of %s: %w", containerID, err)
	}

	transcript := stripansi.Strip(buf.String())
	if exitCode != 0 {
		return transcript, fmt.Errorf("container exited with status %d", exitCode)
	}
	return transcript, nil
}

// CleanResource prunes images left behind by finished jobs.
func (ds *DockerService) CleanResource() {
	images, err := ds.c.ImageList(context.Background(), types.ImageListOptions{})
	if err != nil {
		logs.GetLogger().Errorf("Failed get image list, error: %+v", err)
		return
	}

	for _, image := range images {
		if image.Containers == 0 {
			logs.GetLogger().Infof("start clean unused image, imageId: %s", image.ID)
			if _, err := ds.c.ImageRemove(context.Background(), image.ID, types.ImageRemoveOptions{
				Force:         true,
				PruneChildren: true,
			}); err != nil {
				logs.GetLogger().Warnf("removing image %s: %v", image.ID, err)
			}
		}
	}

	ctx := context.Background()
	danglingFilters := filters.NewArgs()
	danglingFilters.Add("dangling", "true")
	if _, err = ds.c.ImagesPrune(ctx, danglingFilters); err != nil {
		logs.GetLogger().Errorf("Failed delete dangling image, error: %+v", err)
		return
	}

	if _, err = ds.c.ContainersPrune(ctx, filters.NewArgs()); err != nil {
		logs.GetLogger().Errorf("Failed delete unused container, error: %+v", err)
		return
	}
}

// StartCleanupTicker prunes periodically until the context ends.
func (ds *DockerService) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logs.GetLogger().Errorf("docker cleanup ticker panic: %+v", r)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ds.CleanResource()
			}
		}
	}()
}
