package config

import (
	"github.com/danintel/trusted-compute-framework/crypto/hashing"
	"github.com/danintel/trusted-compute-framework/crypto/secp256k1"
)

// These consts are defaults used in ClientCfg and WorkerCfg
const (
	DefaultHashingAlgorithm = hashing.SHA256
	DefaultSigningAlgorithm = secp256k1.Algorithm

	AlgorithmsFile    = "tcs_config.toml"
	AlgorithmsSection = "WorkerConfig"

	EnvPrefix = "TCF"

	DefaultWorkerPort      = 1947
	DefaultWorkerPath      = "/rpc"
	DefaultTimeoutMSecs    = 10000
	DefaultResultCacheSize = 1024
	DefaultQueueSize       = 256

	ResultStoreMemory = "memory"
	ResultStoreBadger = "badger"
)
