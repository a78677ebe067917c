package stake

import (
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

const (
	msgNotConnected     = "Please connect your wallet!"
	msgApprovalComplete = "Approval completed."
	msgInFlight         = "A previous request for this account is still being processed."
	msgUnderflow        = "You may be trying to stake more than your balance! Error code: 32603. Message: ds-math-sub-underflow"

	underflowMarker = "ds-math-sub-underflow"
)

// userMessage turns a write failure into the text shown to the user.
// A subtraction underflow becomes a balance hint whatever code the node attached
// to it (-32603 from wallet providers, 3 for a revert during gas estimation).
// Anything else is shown as the innermost error message.
func userMessage(err error) string {
	if strings.Contains(err.Error(), underflowMarker) {
		return msgUnderflow
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Error()
	}
	return errors.Cause(err).Error()
}
