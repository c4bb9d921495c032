package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/danintel/trusted-compute-framework/crypto/secp256k1"
	"github.com/danintel/trusted-compute-framework/rpcclient"
	"github.com/danintel/trusted-compute-framework/signature"
	"github.com/danintel/trusted-compute-framework/workorder"
)

// pollInterval is the WorkOrderGetResult period of result --wait.
const pollInterval = 500 * time.Millisecond

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a requester signing key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := &secp256k1.SignKeys{}
		if err := keys.Generate(); err != nil {
			return err
		}
		pub, priv := keys.HexString()
		pem, err := keys.PublicPEM()
		if err != nil {
			return err
		}
		fmt.Fprintf(Stdout, "%s %s\n", keysPrint.Sprint("private key:"), priv)
		fmt.Fprintf(Stdout, "%s %s\n", keysPrint.Sprint("public key:"), pub)
		fmt.Fprint(Stdout, pem)
		if save, _ := cmd.Flags().GetBool("save"); save {
			pviper.Set("signingKey", priv)
			if err := pviper.WriteConfig(); err != nil {
				return err
			}
			fmt.Fprintf(Stdout, "saved in %s\n", pviper.ConfigFileUsed())
		}
		return nil
	},
}

var signCmd = &cobra.Command{
	Use:   "sign <request.json>",
	Short: "Sign a WorkOrderSubmit request for the configured worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := signFile(args[0])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(req, "", "  ")
		if err != nil {
			return err
		}
		if out, _ := cmd.Flags().GetString("out"); out != "" {
			return os.WriteFile(out, data, 0o644)
		}
		fmt.Fprintln(Stdout, string(data))
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <response.json>",
	Short: "Verify the worker signature of a work order response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		worker, client, err := loadWorker()
		if err != nil {
			return err
		}
		return printStatus(client.VerifySignature(data, worker))
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <request.json>",
	Short: "Sign and submit a work order, and verify its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := signFile(args[0])
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("timeoutMSecs") {
			// not covered by the signature
			req.Params.ResponseTimeoutMSecs = cfg.TimeoutMSecs
		}
		cli, err := rpcclient.New(cfg.WorkerURI)
		if err != nil {
			return err
		}
		resp, err := cli.WorkOrderSubmit(context.Background(), req)
		if err != nil {
			return err
		}
		if resp.Error != nil && resp.Error.Code.Pending() {
			fmt.Fprintf(Stdout, "work order %s is %s\n", req.Params.WorkOrderID, resp.Error.Code)
			return nil
		}
		return showResult(req.Params.WorkOrderID, resp)
	},
}

var resultCmd = &cobra.Command{
	Use:   "result <workOrderId>",
	Short: "Fetch and verify the result of a submitted work order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := rpcclient.New(cfg.WorkerURI)
		if err != nil {
			return err
		}
		var resp *workorder.Response
		if wait, _ := cmd.Flags().GetBool("wait"); wait {
			ctx := context.Background()
			if cfg.TimeoutMSecs > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutMSecs)*time.Millisecond)
				defer cancel()
			}
			resp, err = cli.WaitResult(ctx, args[0], pollInterval)
		} else {
			resp, err = cli.WorkOrderGetResult(context.Background(), args[0])
		}
		if err != nil {
			return err
		}
		if resp.Error != nil && resp.Error.Code.Pending() {
			fmt.Fprintf(Stdout, "work order %s is %s\n", args[0], resp.Error.Code)
			return nil
		}
		return showResult(args[0], resp)
	},
}

// showResult verifies a final response and prints its outData, decrypted
// when the session keys of the work order are known.
func showResult(workOrderID string, resp *workorder.Response) error {
	worker, client, err := loadWorker()
	if err != nil {
		return err
	}
	if resp.Error != nil {
		errorPrint.Fprintf(Stdout, "%v\n", resp.Error)
	}
	status := client.VerifyResult(resp, worker)
	if status != signature.StatusPassed {
		return printStatus(status)
	}
	outData := workorder.SortedItems(resp.Result.OutData)
	sk, err := loadSession(workOrderID)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(Stdout, "no session keys for work order %s, showing encrypted data\n", workOrderID)
	case err != nil:
		return err
	default:
		if err := signature.DecryptItems(outData, sk.Key, sk.IV, nil); err != nil {
			return err
		}
	}
	for _, item := range outData {
		fmt.Fprintf(Stdout, "%s %s\n", keysPrint.Sprintf("outData[%d]:", item.Index), item.Data)
	}
	return printStatus(status)
}

func printStatus(status signature.Status) error {
	if status == signature.StatusPassed {
		passPrint.Fprintf(Stdout, "signature verification: %s\n", status)
		return nil
	}
	errorPrint.Fprintf(Stdout, "signature verification: %s\n", status)
	return fmt.Errorf("verification failed with %s", status)
}

// newWorkOrderID returns a random work order id, for requests leaving it
// empty.
func newWorkOrderID() string {
	id := uuid.New()
	return fmt.Sprintf("0x%x", id[:])
}
