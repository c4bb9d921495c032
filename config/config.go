// Package config holds the configuration of the requester client and the
// worker service, and the algorithm policy both sides enforce.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/danintel/trusted-compute-framework/crypto/hashing"
	"github.com/danintel/trusted-compute-framework/crypto/secp256k1"
)

// Algorithms is the locally configured algorithm policy. A worker advertising
// a different hashing or signing algorithm is refused.
type Algorithms struct {
	HashingAlgorithm string
	SigningAlgorithm string
}

// DefaultAlgorithms returns the policy used when no configuration file sets
// one.
func DefaultAlgorithms() Algorithms {
	return Algorithms{
		HashingAlgorithm: DefaultHashingAlgorithm,
		SigningAlgorithm: DefaultSigningAlgorithm,
	}
}

// Validate checks that the configured algorithms are implemented.
func (a Algorithms) Validate() error {
	if _, err := hashing.New(a.HashingAlgorithm); err != nil {
		return err
	}
	if a.SigningAlgorithm != secp256k1.Algorithm {
		return fmt.Errorf("unsupported signing algorithm %q", a.SigningAlgorithm)
	}
	return nil
}

// LoadAlgorithms reads the [WorkerConfig] section of a TOML file, such as
// tcs_config.toml. Keys not present in the file keep their default value.
func LoadAlgorithms(path string) (Algorithms, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault(AlgorithmsSection+".HashingAlgorithm", DefaultHashingAlgorithm)
	v.SetDefault(AlgorithmsSection+".SigningAlgorithm", DefaultSigningAlgorithm)
	if err := v.ReadInConfig(); err != nil {
		return Algorithms{}, fmt.Errorf("cannot read algorithms from %s: %w", path, err)
	}
	a := Algorithms{
		HashingAlgorithm: v.GetString(AlgorithmsSection + ".HashingAlgorithm"),
		SigningAlgorithm: v.GetString(AlgorithmsSection + ".SigningAlgorithm"),
	}
	if err := a.Validate(); err != nil {
		return Algorithms{}, err
	}
	return a, nil
}

// ReadAlgorithms loads the algorithm policy from file, relative to dataDir
// unless absolute. A missing file selects DefaultAlgorithms.
func ReadAlgorithms(dataDir, file string) (Algorithms, error) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(dataDir, file)
	}
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return DefaultAlgorithms(), nil
	}
	return LoadAlgorithms(file)
}

// ClientCfg stores the configuration of the requester client
type ClientCfg struct {
	LogLevel string
	DataDir  string
	// AlgorithmsFile is the TOML file holding the [WorkerConfig] section.
	AlgorithmsFile string
	// WorkerFile is the JSON worker descriptor of the target worker.
	WorkerFile string
	WorkerURI  string
	SigningKey string
	// TimeoutMSecs is copied into responseTimeoutMSecs; zero submits
	// asynchronously.
	TimeoutMSecs int
}

// WorkerCfg stores the configuration of the worker service
type WorkerCfg struct {
	LogLevel string
	// LogErrorFile, if set, also receives the warning and error messages.
	LogErrorFile   string
	DataDir        string
	AlgorithmsFile string
	WorkerID       string
	Host           string
	Port           int
	Path           string
	SigningKey     string
	EncryptionKey  string
	// ResultStore is either "memory" or "badger".
	ResultStore     string
	ResultCacheSize int
	QueueSize       int
	MetricsPath     string
	TLSDomain       string
}

// ClientFlags defines the client flags on fs.
func ClientFlags(fs *flag.FlagSet, home string) {
	fs.String("dataDir", filepath.Join(home, ".tcfclient"), "directory holding the client configuration and keys")
	fs.String("logLevel", "info", "log level (debug, info, warn, error)")
	fs.String("algorithmsFile", AlgorithmsFile, "TOML file with the [WorkerConfig] algorithm policy")
	fs.String("workerFile", "worker.json", "worker descriptor JSON file")
	fs.String("workerURI", fmt.Sprintf("http://127.0.0.1:%d%s", DefaultWorkerPort, DefaultWorkerPath), "worker JSON-RPC endpoint")
	fs.String("signingKey", "", "requester secp256k1 private hexadecimal key")
	fs.Int("timeoutMSecs", DefaultTimeoutMSecs, "work order response timeout, 0 means asynchronous")
}

// WorkerFlags defines the worker flags on fs.
func WorkerFlags(fs *flag.FlagSet, home string) {
	fs.String("dataDir", filepath.Join(home, ".tcfworker"), "directory holding the worker configuration, keys and results")
	fs.String("logLevel", "info", "log level (debug, info, warn, error)")
	fs.String("logErrorFile", "", "file where warnings and errors are also written, empty to disable")
	fs.String("algorithmsFile", AlgorithmsFile, "TOML file with the [WorkerConfig] algorithm policy")
	fs.String("workerId", "", "worker identifier, random if empty")
	fs.String("host", "0.0.0.0", "IP address to listen on")
	fs.Int("port", DefaultWorkerPort, "network port for the JSON-RPC endpoint")
	fs.String("path", DefaultWorkerPath, "HTTP path of the JSON-RPC endpoint")
	fs.String("signingKey", "", "worker secp256k1 private hexadecimal key, generated if empty")
	fs.String("encryptionKey", "", "worker nacl private hexadecimal key, generated if empty")
	fs.String("resultStore", ResultStoreMemory, "where to keep work order results (memory, badger)")
	fs.Int("resultCacheSize", DefaultResultCacheSize, "number of results kept by the memory store")
	fs.Int("queueSize", DefaultQueueSize, "maximum number of queued asynchronous work orders")
	fs.String("metricsPath", "/metrics", "HTTP path for the prometheus metrics, empty to disable")
	fs.String("tlsDomain", "", "enable TLS with a letsencrypt certificate for the domain")
}

// LoadClientCfg resolves the client configuration from the parsed flags,
// the TCF_ prefixed environment and the client.yml file in the data
// directory, in that order of precedence.
func LoadClientCfg(fs *flag.FlagSet) (*ClientCfg, *viper.Viper, error) {
	cfg := &ClientCfg{}
	v, err := load(fs, "client", cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// LoadWorkerCfg resolves the worker configuration as LoadClientCfg does,
// from the worker.yml file.
func LoadWorkerCfg(fs *flag.FlagSet) (*WorkerCfg, *viper.Viper, error) {
	cfg := &WorkerCfg{}
	v, err := load(fs, "worker", cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.ResultStore != ResultStoreMemory && cfg.ResultStore != ResultStoreBadger {
		return nil, nil, fmt.Errorf("unknown result store %q", cfg.ResultStore)
	}
	return cfg, v, nil
}

// load binds fs to a new viper instance, reads <dataDir>/<name>.yml and
// writes it when missing. The returned viper can be used to persist
// generated values with WriteConfig.
func load(fs *flag.FlagSet, name string, cfg any) (*viper.Viper, error) {
	pviper := viper.New()
	pviper.SetConfigName(name)
	pviper.SetConfigType("yml")
	pviper.SetEnvPrefix(EnvPrefix)
	pviper.AutomaticEnv()
	pviper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := pviper.BindPFlags(fs); err != nil {
		return nil, err
	}
	dir := pviper.GetString("dataDir")
	pviper.AddConfigPath(dir)
	// a missing file is fine, it is created below
	_ = pviper.ReadInConfig()

	if _, err := os.Stat(filepath.Join(dir, name+".yml")); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, err
		}
		if err := pviper.SafeWriteConfig(); err != nil {
			return nil, err
		}
	}
	if err := pviper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return pviper, nil
}
