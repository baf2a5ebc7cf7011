package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/filswan/go-mcs-sdk/mcs/api/bucket"
	"github.com/filswan/go-mcs-sdk/mcs/api/user"
	"github.com/filswan/go-swan-lib/logs"
)

// McsUploader pushes container artifacts straight to the bucket so the
// worker can hand back a locator instead of raw bytes.
type McsUploader struct {
	ApiKey      string
	AccessToken string
	Network     string
	BucketName  string
}

// UploaderFromEnv returns nil when no MCS credentials are configured; the
// worker then returns raw results and leaves storage to the client.
func UploaderFromEnv() *McsUploader {
	apiKey := os.Getenv("MCS_API_KEY")
	if apiKey == "" {
		return nil
	}
	return &McsUploader{
		ApiKey:      apiKey,
		AccessToken: os.Getenv("MCS_ACCESS_TOKEN"),
		Network:     os.Getenv("MCS_NETWORK"),
		BucketName:  os.Getenv("MCS_BUCKET"),
	}
}

// UploadArtifact stores one artifact file and returns its ipfs locator.
func (u *McsUploader) UploadArtifact(jobID int64, filePath string) (string, error) {
	objectName := fmt.Sprintf("artifacts/job-%d/%s", jobID, filepath.Base(filePath))

	mcsClient, err := user.LoginByApikey(u.ApiKey, u.AccessToken, u.Network)
	if err != nil {
		return "", err
	}
	bucketClient := bucket.GetBucketClient(*mcsClient)

	existing, err := bucketClient.GetFile(u.BucketName, objectName)
	if err != nil && !strings.Contains(err.Error(), "record not found") {
		return "", err
	}
	if existing != nil {
		if err = bucketClient.DeleteFile(u.BucketName, objectName); err != nil {
			return "", err
		}
	}

	if err := bucketClient.UploadFile(u.BucketName, objectName, filePath, true); err != nil {
		return "", err
	}

	ossFile, err := bucketClient.GetFile(u.BucketName, objectName)
	if err != nil {
		return "", err
	}

	logs.GetLogger().Infof("uploaded artifact for job %d, cid: %s", jobID, ossFile.PayloadCid)
	return "ipfs://" + ossFile.PayloadCid, nil
}
