package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danintel/trusted-compute-framework/config"
	"github.com/danintel/trusted-compute-framework/crypto/secp256k1"
	"github.com/danintel/trusted-compute-framework/session"
	"github.com/danintel/trusted-compute-framework/signature"
	"github.com/danintel/trusted-compute-framework/types"
	"github.com/danintel/trusted-compute-framework/workorder"
)

// sessionsDir holds, per work order, the session keys needed to decrypt its
// result.
const sessionsDir = "sessions"

type sessionFile struct {
	Key types.HexBytes `json:"key"`
	IV  types.HexBytes `json:"iv"`
}

func dataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.DataDir, name)
}

func loadWorker() (*workorder.WorkerDescriptor, *signature.ClientSignature, error) {
	algorithms, err := config.ReadAlgorithms(cfg.DataDir, cfg.AlgorithmsFile)
	if err != nil {
		return nil, nil, err
	}
	worker, err := workorder.ReadWorkerDescriptor(dataPath(cfg.WorkerFile))
	if err != nil {
		return nil, nil, err
	}
	client, err := signature.NewClientSignature(algorithms)
	if err != nil {
		return nil, nil, err
	}
	return worker, client, nil
}

// signFile signs the WorkOrderSubmit request in path with fresh session
// keys, which are kept in the data directory.
func signFile(path string) (*workorder.Request, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !workorder.Validate(payload) {
		return nil, signature.ErrInvalidPayload
	}
	req := &workorder.Request{}
	if err := json.Unmarshal(payload, req); err != nil {
		return nil, fmt.Errorf("%w: %v", signature.ErrInvalidPayload, err)
	}
	if req.Params.WorkOrderID == "" {
		req.Params.WorkOrderID = newWorkOrderID()
	}

	if cfg.SigningKey == "" {
		return nil, errors.New("no signing key configured, run keygen --save")
	}
	signer := &secp256k1.SignKeys{}
	if err := signer.AddHexKey(cfg.SigningKey); err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}
	worker, client, err := loadWorker()
	if err != nil {
		return nil, err
	}
	sk, err := session.New(worker.EncryptionKey)
	if err != nil {
		return nil, err
	}
	err = client.SignRequest(req, worker, &signature.Keys{
		Signer:              signer,
		SessionKey:          sk.Key,
		SessionIV:           sk.IV,
		EncryptedSessionKey: sk.EncryptedKey,
	})
	if err != nil {
		return nil, err
	}
	if err := saveSession(req.Params.WorkOrderID, sk); err != nil {
		return nil, err
	}
	return req, nil
}

func sessionPath(workOrderID string) string {
	return filepath.Join(cfg.DataDir, sessionsDir, filepath.Base(workOrderID)+".json")
}

func saveSession(workOrderID string, sk *session.Keys) error {
	data, err := json.Marshal(&sessionFile{Key: sk.Key, IV: sk.IV})
	if err != nil {
		return err
	}
	path := sessionPath(workOrderID)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func loadSession(workOrderID string) (*sessionFile, error) {
	data, err := os.ReadFile(sessionPath(workOrderID))
	if err != nil {
		return nil, err
	}
	sf := &sessionFile{}
	if err := json.Unmarshal(data, sf); err != nil {
		return nil, fmt.Errorf("corrupted session file: %w", err)
	}
	return sf, nil
}
