package market

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/filswan/go-mcs-sdk/mcs/api/bucket"
	"github.com/filswan/go-mcs-sdk/mcs/api/user"
	"github.com/filswan/go-swan-lib/logs"
	"golang.org/x/xerrors"

	"github.com/carrotlabs/go-carrot-market/conf"
	"github.com/carrotlabs/go-carrot-market/constants"
)

// ResultStore turns a job's transcript and raw result into a
// content-store locator.
type ResultStore interface {
	Store(ctx context.Context, jobID int64, transcript, rawResult string) (string, error)
}

// IsLocator reports whether a worker result is already a content-store
// reference, in which case no upload is needed.
func IsLocator(s string) bool {
	return strings.HasPrefix(s, constants.IpfsScheme) ||
		strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://")
}

var storage *StorageService
var storageOnce sync.Once

// StorageService uploads job artifacts to an MCS bucket and hands back
// ipfs:// locators.
type StorageService struct {
	McsApiKey      string `json:"mcs_api_key"`
	McsAccessToken string `json:"mcs_access_token"`
	NetWork        string `json:"net_work"`
	BucketName     string `json:"bucket_name"`
	FileCachePath  string `json:"file_cache_path"`
}

func NewStorageService() *StorageService {
	storageOnce.Do(func() {
		cfg := conf.GetConfig().MCS
		storage = &StorageService{
			McsApiKey:      cfg.ApiKey,
			McsAccessToken: cfg.AccessToken,
			NetWork:        cfg.Network,
			BucketName:     cfg.BucketName,
			FileCachePath:  cfg.FileCachePath,
		}
	})
	return storage
}

// Store writes the transcript and result to a local artifact file, uploads
// it to the bucket, and returns the ipfs locator of the stored artifact.
func (s *StorageService) Store(ctx context.Context, jobID int64, transcript, rawResult string) (string, error) {
	objectName := fmt.Sprintf("jobs/job-%d-result.txt", jobID)

	artifactPath := filepath.Join(s.FileCachePath, fmt.Sprintf("job-%d-result.txt", jobID))
	content := fmt.Sprintf("=== transcript ===\n%s\n=== result ===\n%s\n", transcript, rawResult)
	if err := os.MkdirAll(s.FileCachePath, 0755); err != nil {
		return "", xerrors.Errorf("preparing artifact dir: %s: %w", err, ErrStorageFailed)
	}
	if err := os.WriteFile(artifactPath, []byte(content), 0644); err != nil {
		return "", xerrors.Errorf("writing artifact for job %d: %s: %w", jobID, err, ErrStorageFailed)
	}
	defer os.Remove(artifactPath)

	ossFile, err := s.UploadFileToBucket(objectName, artifactPath, true)
	if err != nil {
		return "", xerrors.Errorf("uploading result for job %d: %s: %w", jobID, err, ErrStorageFailed)
	}
	if ossFile.PayloadCid == "" {
		return "", xerrors.Errorf("job %d: stored file has no payload cid: %w", jobID, ErrStorageFailed)
	}
	return constants.IpfsScheme + ossFile.PayloadCid, nil
}

func (s *StorageService) UploadFileToBucket(objectName, filePath string, replace bool) (*bucket.OssFile, error) {
	logs.GetLogger().Infof("uploading file to bucket, objectName: %s, filePath: %s", objectName, filePath)
	mcsClient, err := user.LoginByApikey(s.McsApiKey, s.McsAccessToken, s.NetWork)
	if err != nil {
		logs.GetLogger().Errorf("Failed creating mcsClient, error: %v", err)
		return nil, err
	}
	bucketClient := bucket.GetBucketClient(*mcsClient)

	file, err := bucketClient.GetFile(s.BucketName, objectName)
	if err != nil && !strings.Contains(err.Error(), "record not found") {
		logs.GetLogger().Errorf("Failed get file from bucket, error: %v", err)
		return nil, err
	}

	if file != nil {
		if err = bucketClient.DeleteFile(s.BucketName, objectName); err != nil {
			logs.GetLogger().Errorf("Failed delete file from bucket, error: %v", err)
			return nil, err
		}
	}

	if err := bucketClient.UploadFile(s.BucketName, objectName, filePath, replace); err != nil {
		logs.GetLogger().Errorf("Failed upload file to bucket, error: %v", err)
		return nil, err
	}

	mcsOssFile, err := bucketClient.GetFile(s.BucketName, objectName)
	if err != nil {
		logs.GetLogger().Errorf("Failed get file from bucket, error: %v", err)
		return nil, err
	}
	return mcsOssFile, nil
}
