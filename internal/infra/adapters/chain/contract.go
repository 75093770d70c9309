package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"social-boost-platform/internal/domain/model"
)

const erc20ABI = `[
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"type":"bool"}]}
]`

const escrowABI = `[
  {"type":"function","name":"createJob","stateMutability":"nonpayable","inputs":[{"name":"postRef","type":"string"},{"name":"action","type":"uint8"},{"name":"pricePerAction","type":"uint256"},{"name":"maxActions","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"completeJob","stateMutability":"nonpayable","inputs":[{"name":"jobId","type":"uint256"},{"name":"performer","type":"address"}],"outputs":[]},
  {"type":"function","name":"withdrawEarnings","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"getUserEarnings","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"isJobCompleted","stateMutability":"view","inputs":[{"name":"jobId","type":"uint256"},{"name":"performer","type":"address"}],"outputs":[{"type":"bool"}]},
  {"type":"event","name":"JobCreated","inputs":[{"name":"jobId","type":"uint256","indexed":true},{"name":"creator","type":"address","indexed":true}],"anonymous":false},
  {"type":"event","name":"EarningsWithdrawn","inputs":[{"name":"performer","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false}
]`

var (
	parsedERC20  = mustParseABI(erc20ABI)
	parsedEscrow = mustParseABI(escrowABI)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid contract abi: %v", err))
	}
	return parsed
}

// actionCode maps an action kind to the contract's enum ordinal.
func actionCode(kind model.ActionKind) (uint8, error) {
	switch kind {
	case model.ActionLike:
		return 0, nil
	case model.ActionRetweet:
		return 1, nil
	case model.ActionReply:
		return 2, nil
	}
	return 0, fmt.Errorf("unknown action kind %q", kind)
}
