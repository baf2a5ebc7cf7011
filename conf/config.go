package conf

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

var config *MarketNode

// MarketNode is a marketplace client config
type MarketNode struct {
	API    API
	WALLET WALLET
	LEDGER LEDGER
	SYNC   SYNC
	WORKER WORKER
	MCS    MCS
}

type WALLET struct {
	Address string
}

type API struct {
	Port          int
	RedisUrl      string
	RedisPassword string
}

type LEDGER struct {
	GatewayUrl         string
	AccessToken        string
	Network            string
	RegistryContract   string
	MarketContract     string
	ConfirmTimeoutSecs int
}

type SYNC struct {
	IntervalSecs int
	Concurrency  int
}

type WORKER struct {
	Url string
}

type MCS struct {
	ApiKey        string
	AccessToken   string
	BucketName    string
	Network       string
	FileCachePath string
	IpfsGateway   string
}

func InitConfig(repoPath string) error {
	configFile := filepath.Join(repoPath, "config.toml")

	if metaData, err := toml.DecodeFile(configFile, &config); err != nil {
		return fmt.Errorf("failed load config file, path: %s, error: %w", configFile, err)
	} else {
		if !requiredFieldsAreGiven(metaData) {
			log.Fatal("Required fields not given")
		}
	}
	return nil
}

func GetConfig() *MarketNode {
	return config
}

func requiredFieldsAreGiven(metaData toml.MetaData) bool {
	requiredFields := [][]string{
		{"API"},
		{"WALLET"},
		{"LEDGER"},
		{"SYNC"},
		{"WORKER"},
		{"MCS"},

		{"API", "Port"},
		{"API", "RedisUrl"},

		{"WALLET", "Address"},

		{"LEDGER", "GatewayUrl"},
		{"LEDGER", "Network"},
		{"LEDGER", "RegistryContract"},
		{"LEDGER", "MarketContract"},

		{"SYNC", "IntervalSecs"},

		{"WORKER", "Url"},

		{"MCS", "ApiKey"},
		{"MCS", "BucketName"},
		{"MCS", "Network"},
		{"MCS", "FileCachePath"},
	}

	for _, v := range requiredFields {
		if !metaData.IsDefined(v...) {
			log.Fatal("Required fields ", v)
		}
	}

	return true
}
