package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/danintel/trusted-compute-framework/config"
	"github.com/danintel/trusted-compute-framework/crypto"
	"github.com/danintel/trusted-compute-framework/crypto/nacl"
	"github.com/danintel/trusted-compute-framework/crypto/secp256k1"
	"github.com/danintel/trusted-compute-framework/httprouter"
	"github.com/danintel/trusted-compute-framework/log"
	"github.com/danintel/trusted-compute-framework/metrics"
	"github.com/danintel/trusted-compute-framework/signature"
	"github.com/danintel/trusted-compute-framework/util"
	"github.com/danintel/trusted-compute-framework/worker"
)

// DescriptorFile is written in the data directory at startup, for requesters
// to sign work orders with.
const DescriptorFile = "worker.json"

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	config.WorkerFlags(flag.CommandLine, home)
	flag.CommandLine.SortFlags = false
	flag.Parse()

	cfg, pviper, err := config.LoadWorkerCfg(flag.CommandLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load configuration: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel, "stdout")
	if path := cfg.LogErrorFile; path != "" {
		if err := log.SetFileErrorLog(path); err != nil {
			log.Fatal(err)
		}
	}

	algorithms, err := config.ReadAlgorithms(cfg.DataDir, cfg.AlgorithmsFile)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("using hashing algorithm %s and signing algorithm %s",
		algorithms.HashingAlgorithm, algorithms.SigningAlgorithm)

	// generated identities are persisted, so the descriptor stays valid
	// across restarts
	persist := false
	if cfg.WorkerID == "" {
		cfg.WorkerID = "0x" + util.RandomHex(16)
		pviper.Set("workerId", cfg.WorkerID)
		persist = true
	}
	signKeys := &secp256k1.SignKeys{}
	if cfg.SigningKey == "" {
		if err := signKeys.Generate(); err != nil {
			log.Fatal(err)
		}
		_, priv := signKeys.HexString()
		pviper.Set("signingKey", priv)
		persist = true
	} else if err := signKeys.AddHexKey(cfg.SigningKey); err != nil {
		log.Fatalf("invalid signing key: %v", err)
	}
	var encKey crypto.Cipher
	if cfg.EncryptionKey == "" {
		if encKey, err = nacl.Generate(nil); err != nil {
			log.Fatal(err)
		}
		pviper.Set("encryptionKey", hex.EncodeToString(encKey.Bytes()))
		persist = true
	} else if encKey, err = nacl.DecodePrivate(cfg.EncryptionKey); err != nil {
		log.Fatalf("invalid encryption key: %v", err)
	}
	if persist {
		if err := pviper.WriteConfig(); err != nil {
			log.Fatalf("cannot write configuration: %v", err)
		}
		log.Infof("generated worker identity saved in %s", pviper.ConfigFileUsed())
	}

	store, err := worker.OpenResultStore(cfg.ResultStore, cfg.DataDir, cfg.ResultCacheSize)
	if err != nil {
		log.Fatal(err)
	}
	if n, err := store.Len(); err != nil {
		log.Warnf("cannot count stored results: %v", err)
	} else {
		log.Infof("%s result store opened with %d results", cfg.ResultStore, n)
	}

	router := httprouter.HTTProuter{
		TLSdomain:  cfg.TLSDomain,
		TLSdirCert: filepath.Join(cfg.DataDir, "tls"),
	}
	if cfg.MetricsPath != "" {
		router.EnablePrometheusMetrics("tcfworker")
	}
	if err := router.Init(cfg.Host, cfg.Port); err != nil {
		log.Fatal(err)
	}
	scheme := "http"
	if cfg.TLSDomain != "" {
		scheme = "https"
	}

	w, err := worker.New(worker.Options{
		WorkerID:      cfg.WorkerID,
		ServiceURI:    fmt.Sprintf("%s://%s%s", scheme, router.Address(), cfg.Path),
		Algorithms:    algorithms,
		SignKeys:      signKeys,
		EncryptionKey: encKey,
		Store:         store,
		QueueSize:     cfg.QueueSize,
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := w.EnableAPI(&router, cfg.Path); err != nil {
		log.Fatal(err)
	}
	if cfg.MetricsPath != "" {
		metrics.NewAgent(cfg.MetricsPath, &router)
		signature.RegisterMetrics()
		worker.RegisterMetrics()
	}

	descriptorPath := filepath.Join(cfg.DataDir, DescriptorFile)
	if err := w.Descriptor().Save(descriptorPath); err != nil {
		log.Fatal(err)
	}
	log.Infof("worker %s descriptor written to %s", cfg.WorkerID, descriptorPath)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	// wait for SIGTERM
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.Warnf("received %s, stopping", sig)
	cancel()
	w.Wait()
	if err := router.Close(); err != nil {
		log.Warn(err)
	}
	if err := w.Close(); err != nil {
		log.Warn(err)
	}
	log.Sync()
}
