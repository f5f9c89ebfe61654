package upload

import (
	"fmt"

	"github.com/scan-io-git/lintgraph/internal/upload"
)

// validateUploadArgs validates the arguments provided to the upload command.
func validateUploadArgs(options *RunOptionsUpload, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("exactly one file to upload must be specified")
	}
	options.File = args[0]

	if options.TargetURL == "" {
		return fmt.Errorf("the 'target-url' flag must not be empty")
	}
	switch options.Encoding {
	case upload.EncodingRaw, upload.EncodingBase64:
	default:
		return fmt.Errorf("invalid 'encoding' %q, expected %q or %q", options.Encoding, upload.EncodingRaw, upload.EncodingBase64)
	}
	if options.ContentType != "" && options.Encoding == upload.EncodingBase64 {
		return fmt.Errorf("the 'content-type' flag only applies to raw uploads")
	}
	return nil
}
