package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/danintel/trusted-compute-framework/config"
	"github.com/danintel/trusted-compute-framework/log"
)

var (
	cfg    *config.ClientCfg
	pviper *viper.Viper

	// Stdout receives the command output, tests replace it.
	Stdout io.Writer = os.Stdout

	keysPrint  = color.New(color.FgCyan, color.Bold)
	passPrint  = color.New(color.FgHiGreen, color.Bold)
	errorPrint = color.New(color.FgHiRed, color.Bold)
)

// RootCmd is the tcfclient entry point.
var RootCmd = &cobra.Command{
	Use:          "tcfclient",
	Short:        "tcfclient signs work orders, submits them to workers and verifies their results",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, pviper, err = config.LoadClientCfg(cmd.Flags()); err != nil {
			return fmt.Errorf("cannot load configuration: %w", err)
		}
		log.Init(cfg.LogLevel, "stderr")
		return nil
	},
}

func init() {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	RootCmd.CompletionOptions.DisableDefaultCmd = true
	config.ClientFlags(RootCmd.PersistentFlags(), home)

	keygenCmd.Flags().Bool("save", false, "store the private key as signingKey in client.yml")
	signCmd.Flags().StringP("out", "o", "", "write the signed request to a file instead of stdout")
	resultCmd.Flags().Bool("wait", false, "poll until the work order is finished")

	RootCmd.AddCommand(keygenCmd)
	RootCmd.AddCommand(signCmd)
	RootCmd.AddCommand(verifyCmd)
	RootCmd.AddCommand(submitCmd)
	RootCmd.AddCommand(resultCmd)
}

func main() {
	err := RootCmd.Execute()
	log.Sync()
	if err != nil {
		errorPrint.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
