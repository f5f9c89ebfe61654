package receive

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/lintgraph/internal/config"
	"github.com/scan-io-git/lintgraph/internal/logger"
	"github.com/scan-io-git/lintgraph/internal/receiver"
	"github.com/scan-io-git/lintgraph/pkg/shared"
	"github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

// RunOptionsReceive holds the arguments for the receive command.
type RunOptionsReceive struct {
	Addr         string `json:"addr"`
	UploadFolder string `json:"upload_folder"`
	Storage      string `json:"storage"`
}

var (
	AppConfig           *config.Config
	receiveOptions      RunOptionsReceive
	exampleReceiveUsage = `  # Accept uploads on port 5000 and store them in ./uploads
  lintgraph receive

  # Listen on another address and folder
  lintgraph receive --addr :5001 --upload-folder /data/uploads

  # Store uploads in the bucket configured under receiver.s3
  lintgraph receive --storage s3`
)

// ReceiveCmd represents the receive command.
var ReceiveCmd = &cobra.Command{
	Use:                   "receive [--addr ADDR] [--upload-folder PATH] [--storage local|s3]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleReceiveUsage,
	Short:                 "Run the HTTP service accepting merged graphs and project files",
	RunE:                  runReceiveCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runReceiveCommand(cmd *cobra.Command, args []string) error {
	logger := logger.NewLogger(AppConfig, "core-receive")

	rcfg := resolveReceiverConfig(&receiveOptions, AppConfig)
	if err := validateReceiveArgs(rcfg, args); err != nil {
		logger.Error("invalid receive arguments", "error", err)
		return errors.NewCommandError(receiveOptions, err, 1)
	}

	store, err := receiver.NewStore(rcfg)
	if err != nil {
		logger.Error("failed to initialize storage", "storage", rcfg.Storage, "error", err)
		return errors.NewCommandError(receiveOptions, err, 1)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := receiver.New(store, logger).ListenAndServe(ctx, rcfg.Addr); err != nil {
		logger.Error("receive command failed", "error", err)
		return errors.NewCommandError(receiveOptions, err, 1)
	}

	logger.Info("receiver stopped")
	return nil
}

// resolveReceiverConfig overlays flags on the receiver section of the config.
func resolveReceiverConfig(opts *RunOptionsReceive, cfg *config.Config) config.Receiver {
	if cfg == nil {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}
	rcfg := cfg.Receiver
	rcfg.Addr = shared.StringOr(opts.Addr, rcfg.Addr)
	rcfg.UploadFolder = shared.StringOr(opts.UploadFolder, rcfg.UploadFolder)
	rcfg.Storage = shared.StringOr(opts.Storage, rcfg.Storage)
	return rcfg
}

func init() {
	ReceiveCmd.Flags().StringVar(&receiveOptions.Addr, "addr", "", "Listen address (default from config, "+config.DefaultReceiverAddr+").")
	ReceiveCmd.Flags().StringVar(&receiveOptions.UploadFolder, "upload-folder", "", "Folder receiving uploaded files (default from config, "+config.DefaultUploadFolder+").")
	ReceiveCmd.Flags().StringVar(&receiveOptions.Storage, "storage", "", "Storage backend: local or s3 (default from config).")
	ReceiveCmd.Flags().BoolP("help", "h", false, "Show help for the receive command.")
}
