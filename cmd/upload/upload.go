package upload

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/lintgraph/internal/config"
	"github.com/scan-io-git/lintgraph/internal/logger"
	"github.com/scan-io-git/lintgraph/internal/pipeline"
	"github.com/scan-io-git/lintgraph/internal/upload"
	"github.com/scan-io-git/lintgraph/pkg/shared"
	"github.com/scan-io-git/lintgraph/pkg/shared/errors"
	"github.com/scan-io-git/lintgraph/pkg/shared/httpclient"
)

// RunOptionsUpload holds the arguments for the upload command.
type RunOptionsUpload struct {
	TargetURL     string `json:"target_url"`
	Encoding      string `json:"encoding"`
	ContentType   string `json:"content_type,omitempty"`
	FileType      string `json:"file_type,omitempty"`
	PathInProject string `json:"path_in_project,omitempty"`
	File          string `json:"file"`
}

var (
	AppConfig          *config.Config
	uploadOptions      RunOptionsUpload
	exampleUploadUsage = `  # Upload a merged graph as raw JSON
  lintgraph upload --file-type merged_graph export/merged_graph.json

  # Upload a source file wrapped in a base64 envelope
  lintgraph upload --encoding base64 --file-type source_file --path-in-project src/main/java/org/foo/Bar.java ../project/src/main/java/org/foo/Bar.java`
)

// UploadCmd represents the upload command.
var UploadCmd = &cobra.Command{
	Use:                   "upload [--target-url URL] [--encoding raw|base64] [--content-type TYPE] [--file-type TYPE] [--path-in-project PATH] FILE",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleUploadUsage,
	Short:                 "Send a single file to the receiver service",
	RunE:                  runUploadCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runUploadCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-upload")

	if err := validateUploadArgs(&uploadOptions, args); err != nil {
		logger.Error("invalid upload arguments", "error", err)
		return errors.NewCommandError(uploadOptions, err, 1)
	}

	client := upload.New(httpclient.InitializeRestyClient(logger.Named("http"), AppConfig), logger)
	resp, err := client.Upload(cmd.Context(), upload.Request{
		Path:          uploadOptions.File,
		TargetURL:     uploadOptions.TargetURL,
		ContentType:   uploadOptions.ContentType,
		FileType:      uploadOptions.FileType,
		PathInProject: uploadOptions.PathInProject,
	}, uploadOptions.Encoding)
	if err != nil {
		logger.Error("upload command failed", "file", uploadOptions.File, "error", err)
		return errors.NewCommandError(uploadOptions, err, 1)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return errors.NewCommandError(uploadOptions, fmt.Errorf("failed to encode receiver response: %w", err), 1)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func init() {
	UploadCmd.Flags().StringVar(&uploadOptions.TargetURL, "target-url", pipeline.DefaultTargetURL, "Upload endpoint of the receiver service.")
	UploadCmd.Flags().StringVar(&uploadOptions.Encoding, "encoding", upload.EncodingRaw, "Request encoding: raw or base64.")
	UploadCmd.Flags().StringVar(&uploadOptions.ContentType, "content-type", "", "Content-Type of a raw upload (default guessed from the extension).")
	UploadCmd.Flags().StringVar(&uploadOptions.FileType, "file-type", "", "Value of the file type routing header.")
	UploadCmd.Flags().StringVar(&uploadOptions.PathInProject, "path-in-project", "", "Path of the file relative to the project root.")
	UploadCmd.Flags().BoolP("help", "h", false, "Show help for the upload command.")
}
