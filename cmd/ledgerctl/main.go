// Command ledgerctl runs maintenance operations against a ledger store
// without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"financeflow/internal/amqp"
	"financeflow/internal/backend"
	"financeflow/internal/cli"
	"financeflow/internal/config"
	"financeflow/internal/ledger"
	"financeflow/internal/log"
)

// opener returns the backend a command works on plus its cleanup.
type opener func(ctx context.Context) (*backend.Result, error)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)

	// Running servers drop their cached sessions when they hear about
	// changes made here. Without a broker they only see them after the
	// session expires.
	var (
		pub    ledger.Publisher
		client *amqp.Client
	)
	if cfg.AMQPEnabled() {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, servers will not be told about changes", log.FieldError, err)
		} else {
			client = c
			pub = c
		}
	}

	root := newRootCmd(func(ctx context.Context) (*backend.Result, error) {
		bcfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return nil, err
		}
		if bcfg.Type == backend.Memory {
			logger.Warn("Memory backend selected: changes are lost when ledgerctl exits")
		}
		return backend.NewFactory(logger).Create(ctx, bcfg)
	}, pub, logger)

	err := root.Execute()
	if client != nil {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("AMQP close error", log.FieldError, cerr)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(open opener, pub ledger.Publisher, logger *log.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Maintain financeflow ledgers",
		Long:          `ledgerctl exports, imports, resets and reconciles owner ledgers directly against the configured store (DATA_BACKEND, SQLITE_DB_PATH).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("owner", "", "Owner whose ledger to operate on")

	root.AddCommand(
		newExportCmd(open, logger),
		newImportCmd(open, pub, logger),
		newResetCmd(open, pub, logger),
		newReconcileCmd(open, pub, logger),
		newEffectiveMonthCmd(),
	)
	return root
}
