package receive

import (
	"fmt"

	"github.com/scan-io-git/lintgraph/internal/config"
)

// validateReceiveArgs validates the resolved receiver settings.
func validateReceiveArgs(rcfg config.Receiver, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("receive takes no positional arguments, got %v", args)
	}
	if rcfg.Addr == "" {
		return fmt.Errorf("the 'addr' flag must not be empty")
	}
	return config.ValidateReceiverConfig(&rcfg)
}
