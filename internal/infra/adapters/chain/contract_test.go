package chain

import (
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"social-boost-platform/internal/config"
	"social-boost-platform/internal/domain/model"
)

const (
	testTokenAddr  = "0x1111111111111111111111111111111111111111"
	testEscrowAddr = "0x2222222222222222222222222222222222222222"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	logger := zerolog.New(io.Discard)
	c, err := NewClient(config.ChainConfig{
		Endpoints:      []string{"http://rpc.invalid"},
		TokenAddress:   testTokenAddr,
		EscrowAddress:  testEscrowAddr,
		MaxRetries:     1,
		Backoff:        time.Millisecond,
		ReceiptTimeout: time.Second,
	}, &logger)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func jobCreatedLog(contract common.Address, jobID int64) *types.Log {
	return &types.Log{
		Address: contract,
		Topics: []common.Hash{
			parsedEscrow.Events["JobCreated"].ID,
			common.BigToHash(big.NewInt(jobID)),
			common.HexToHash("0x000000000000000000000000aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		},
	}
}

func TestDecodeJobCreated(t *testing.T) {
	c := testClient(t)

	t.Run("decodes the id from a matching log", func(t *testing.T) {
		id := c.decodeJobCreated([]*types.Log{jobCreatedLog(c.escrow, 42)})
		if id == nil || id.Int64() != 42 {
			t.Fatalf("expected id 42, got %v", id)
		}
	})

	t.Run("skips unrelated logs", func(t *testing.T) {
		transfer := &types.Log{
			Address: c.token,
			Topics: []common.Hash{
				common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"),
				common.HexToHash("0x01"),
				common.HexToHash("0x02"),
			},
		}
		logs := []*types.Log{nil, transfer, jobCreatedLog(c.escrow, 7)}
		id := c.decodeJobCreated(logs)
		if id == nil || id.Int64() != 7 {
			t.Fatalf("expected id 7, got %v", id)
		}
	})

	t.Run("ignores the same event from a different contract", func(t *testing.T) {
		other := common.HexToAddress("0x3333333333333333333333333333333333333333")
		if id := c.decodeJobCreated([]*types.Log{jobCreatedLog(other, 42)}); id != nil {
			t.Fatalf("expected nil for a foreign contract, got %v", id)
		}
	})

	t.Run("returns nil when nothing decodes", func(t *testing.T) {
		if id := c.decodeJobCreated(nil); id != nil {
			t.Fatalf("expected nil, got %v", id)
		}
	})
}

func TestDecodeWithdrawAmount(t *testing.T) {
	c := testClient(t)
	performer := "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	amount := big.NewInt(1_200_000)

	withdrawnLog := &types.Log{
		Address: c.escrow,
		Topics: []common.Hash{
			parsedEscrow.Events["EarningsWithdrawn"].ID,
			common.BytesToHash(common.HexToAddress(performer).Bytes()),
		},
		Data: common.LeftPadBytes(amount.Bytes(), 32),
	}

	t.Run("decodes the performer's payout", func(t *testing.T) {
		got := c.decodeWithdrawAmount([]*types.Log{withdrawnLog}, performer)
		if got == nil || got.Cmp(amount) != 0 {
			t.Fatalf("expected %s, got %v", amount, got)
		}
	})

	t.Run("ignores another performer's payout in the same receipt", func(t *testing.T) {
		other := "0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
		if got := c.decodeWithdrawAmount([]*types.Log{withdrawnLog}, other); got != nil {
			t.Fatalf("expected nil for a different performer, got %v", got)
		}
	})
}

func TestActionCode(t *testing.T) {
	cases := []struct {
		kind model.ActionKind
		want uint8
	}{
		{model.ActionLike, 0},
		{model.ActionRetweet, 1},
		{model.ActionReply, 2},
	}
	for _, tc := range cases {
		got, err := actionCode(tc.kind)
		if err != nil || got != tc.want {
			t.Errorf("actionCode(%q) = %d, %v; want %d", tc.kind, got, err, tc.want)
		}
	}
	if _, err := actionCode("follow"); err == nil {
		t.Error("expected an error for an unknown action")
	}
}
