package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"social-boost-platform/internal/config"
	"social-boost-platform/internal/domain"
	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/adapter"
	"social-boost-platform/internal/infra/metrics"
)

var _ adapter.EscrowChain = (*Client)(nil)

// Client talks to the reward token and escrow contracts through the failover
// pool. Amounts cross this boundary as *big.Int in token minimum units.
type Client struct {
	pool   *rpcPool
	token  common.Address
	escrow common.Address

	gasMarginPct    int
	defaultGasLimit uint64
	receiptTimeout  time.Duration

	log *zerolog.Logger

	chainIDMu sync.Mutex
	chainID   *big.Int
}

func NewClient(cfg config.ChainConfig, logger *zerolog.Logger) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("no rpc endpoints configured")
	}
	if !common.IsHexAddress(cfg.TokenAddress) || !common.IsHexAddress(cfg.EscrowAddress) {
		return nil, fmt.Errorf("invalid token or escrow address")
	}
	return &Client{
		pool:            newRPCPool(cfg.Endpoints, cfg.MaxRetries, cfg.Backoff),
		token:           common.HexToAddress(cfg.TokenAddress),
		escrow:          common.HexToAddress(cfg.EscrowAddress),
		gasMarginPct:    cfg.GasMarginPct,
		defaultGasLimit: cfg.DefaultGasLimit,
		receiptTimeout:  cfg.ReceiptTimeout,
		log:             logger,
	}, nil
}

func (c *Client) getChainID(ctx context.Context) (*big.Int, error) {
	c.chainIDMu.Lock()
	defer c.chainIDMu.Unlock()
	if c.chainID != nil {
		return c.chainID, nil
	}
	var id *big.Int
	err := c.pool.do(ctx, func(ctx context.Context, ec *ethclient.Client) error {
		var err error
		id, err = ec.ChainID(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.chainID = id
	return id, nil
}

// readCall packs a view call, executes it with failover and unpacks results.
func (c *Client) readCall(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	var raw []byte
	err = c.pool.do(ctx, func(ctx context.Context, ec *ethclient.Client) error {
		var err error
		raw, err = ec.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	out, err := parsed.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

func asBig(out []interface{}) (*big.Int, error) {
	if len(out) == 0 {
		return nil, fmt.Errorf("empty call result")
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected call result type %T", out[0])
	}
	return v, nil
}

func (c *Client) TokenBalance(ctx context.Context, wallet string) (*big.Int, error) {
	out, err := c.readCall(ctx, c.token, parsedERC20, "balanceOf", common.HexToAddress(wallet))
	if err != nil {
		return nil, err
	}
	return asBig(out)
}

func (c *Client) NativeBalance(ctx context.Context, wallet string) (*big.Int, error) {
	var bal *big.Int
	err := c.pool.do(ctx, func(ctx context.Context, ec *ethclient.Client) error {
		var err error
		bal, err = ec.BalanceAt(ctx, common.HexToAddress(wallet), nil)
		return err
	})
	return bal, err
}

func (c *Client) Allowance(ctx context.Context, owner string) (*big.Int, error) {
	out, err := c.readCall(ctx, c.token, parsedERC20, "allowance", common.HexToAddress(owner), c.escrow)
	if err != nil {
		return nil, err
	}
	return asBig(out)
}

func (c *Client) UserEarnings(ctx context.Context, wallet string) (*big.Int, error) {
	out, err := c.readCall(ctx, c.escrow, parsedEscrow, "getUserEarnings", common.HexToAddress(wallet))
	if err != nil {
		return nil, err
	}
	return asBig(out)
}

func (c *Client) JobCompleted(ctx context.Context, onChainJobID *big.Int, wallet string) (bool, error) {
	out, err := c.readCall(ctx, c.escrow, parsedEscrow, "isJobCompleted", onChainJobID, common.HexToAddress(wallet))
	if err != nil {
		return false, err
	}
	if len(out) == 0 {
		return false, fmt.Errorf("empty call result")
	}
	v, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected call result type %T", out[0])
	}
	return v, nil
}

// sendTx builds, signs, submits a transaction and waits for its receipt.
// Gas is estimated with a safety margin; if estimation fails the transaction
// is still submitted with the default limit (availability over precision).
// Once the transaction is on the wire its hash is returned even when the
// receipt wait fails, so callers can record the in-flight state.
func (c *Client) sendTx(ctx context.Context, signer adapter.TxSigner, to common.Address, parsed abi.ABI, method string, args ...interface{}) (*types.Receipt, common.Hash, error) {
	from := common.HexToAddress(signer.Address())
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}
	chainID, err := c.getChainID(ctx)
	if err != nil {
		return nil, common.Hash{}, err
	}

	var nonce uint64
	if err := c.pool.do(ctx, func(ctx context.Context, ec *ethclient.Client) error {
		var err error
		nonce, err = ec.PendingNonceAt(ctx, from)
		return err
	}); err != nil {
		return nil, common.Hash{}, err
	}

	var gasPrice *big.Int
	if err := c.pool.do(ctx, func(ctx context.Context, ec *ethclient.Client) error {
		var err error
		gasPrice, err = ec.SuggestGasPrice(ctx)
		return err
	}); err != nil {
		return nil, common.Hash{}, err
	}

	gasLimit := c.defaultGasLimit
	msg := ethereum.CallMsg{From: from, To: &to, Data: data, GasPrice: gasPrice}
	var estimate uint64
	estErr := c.pool.do(ctx, func(ctx context.Context, ec *ethclient.Client) error {
		var err error
		estimate, err = ec.EstimateGas(ctx, msg)
		return err
	})
	if estErr != nil {
		metrics.GasEstimateFallback()
		c.log.Warn().Err(estErr).Str("method", method).Uint64("fallback_gas", gasLimit).
			Msg("gas estimation failed, submitting with default limit")
	} else {
		gasLimit = estimate + estimate*uint64(c.gasMarginPct)/100
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := signer.SignTx(ctx, tx, chainID)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("sign %s: %w", method, err)
	}

	if err := c.pool.do(ctx, func(ctx context.Context, ec *ethclient.Client) error {
		return ec.SendTransaction(ctx, signed)
	}); err != nil {
		return nil, common.Hash{}, err
	}

	receipt, err := c.waitReceipt(ctx, signed.Hash())
	return receipt, signed.Hash(), err
}

// submittedHash renders a hash for a transaction that made it on the wire;
// the zero hash (never submitted) renders as empty.
func submittedHash(hash common.Hash) string {
	if hash == (common.Hash{}) {
		return ""
	}
	return hash.Hex()
}

// waitReceipt polls for the mined receipt. The wait deliberately survives
// caller cancellation: once submitted, abandoning the transaction mid-flight
// would leave escrowed funds in an unknown state, so we keep waiting up to
// the receipt timeout and let state be reconciled either way.
func (c *Client) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.receiptTimeout)
	defer cancel()

	start := time.Now()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		var receipt *types.Receipt
		err := c.pool.do(wctx, func(ctx context.Context, ec *ethclient.Client) error {
			var err error
			receipt, err = ec.TransactionReceipt(ctx, hash)
			return err
		})
		if err == nil && receipt != nil {
			success := receipt.Status == types.ReceiptStatusSuccessful
			metrics.ObserveReceiptWait(time.Since(start).Seconds(), success)
			if !success {
				return receipt, fmt.Errorf("%w: tx %s", domain.ErrChainExecutionFailed, hash.Hex())
			}
			return receipt, nil
		}
		if err != nil && err != ethereum.NotFound {
			// NotFound just means not mined yet; anything retryable was
			// already retried by the pool, so only log and keep polling.
			c.log.Debug().Err(err).Str("tx", hash.Hex()).Msg("receipt poll error")
		}
		select {
		case <-wctx.Done():
			metrics.ObserveReceiptWait(time.Since(start).Seconds(), false)
			return nil, fmt.Errorf("receipt wait for tx %s: %w", hash.Hex(), wctx.Err())
		case <-ticker.C:
		}
	}
}

func toTxReceipt(r *types.Receipt, hash common.Hash) adapter.TxReceipt {
	out := adapter.TxReceipt{TxHash: hash.Hex()}
	if r != nil {
		out.Succeeded = r.Status == types.ReceiptStatusSuccessful
		if r.BlockNumber != nil {
			out.BlockNumber = r.BlockNumber.Uint64()
		}
		out.GasUsed = r.GasUsed
	}
	return out
}

func (c *Client) Approve(ctx context.Context, signer adapter.TxSigner, amount *big.Int) (adapter.TxReceipt, error) {
	receipt, hash, err := c.sendTx(ctx, signer, c.token, parsedERC20, "approve", c.escrow, amount)
	if receipt == nil {
		return adapter.TxReceipt{TxHash: submittedHash(hash)}, err
	}
	return toTxReceipt(receipt, hash), err
}

func (c *Client) CreateJob(ctx context.Context, signer adapter.TxSigner, postRef string, action model.ActionKind, pricePerAction *big.Int, maxActions int64) (adapter.CreateJobResult, error) {
	code, err := actionCode(action)
	if err != nil {
		return adapter.CreateJobResult{}, err
	}
	receipt, hash, err := c.sendTx(ctx, signer, c.escrow, parsedEscrow, "createJob",
		postRef, code, pricePerAction, big.NewInt(maxActions))
	if receipt == nil {
		// A non-empty hash with no receipt means submitted but unconfirmed:
		// funds may be escrowed, so the caller must not lose the hash.
		return adapter.CreateJobResult{Receipt: adapter.TxReceipt{TxHash: submittedHash(hash)}}, err
	}
	res := adapter.CreateJobResult{Receipt: toTxReceipt(receipt, hash)}
	if err != nil {
		return res, err
	}
	res.OnChainID = c.decodeJobCreated(receipt.Logs)
	return res, nil
}

// decodeJobCreated scans receipt logs for the escrow contract's JobCreated
// event. Unrelated logs (token Transfer etc.) are skipped; ordering is not
// assumed. Returns nil when no decodable event is present.
func (c *Client) decodeJobCreated(logs []*types.Log) *big.Int {
	eventID := parsedEscrow.Events["JobCreated"].ID
	for _, lg := range logs {
		if lg == nil || lg.Address != c.escrow || len(lg.Topics) < 2 {
			continue
		}
		if lg.Topics[0] != eventID {
			continue
		}
		return new(big.Int).SetBytes(lg.Topics[1].Bytes())
	}
	return nil
}

func (c *Client) CompleteJob(ctx context.Context, signer adapter.TxSigner, onChainJobID *big.Int, performer string) (adapter.TxReceipt, error) {
	receipt, hash, err := c.sendTx(ctx, signer, c.escrow, parsedEscrow, "completeJob",
		onChainJobID, common.HexToAddress(performer))
	if receipt == nil {
		return adapter.TxReceipt{TxHash: submittedHash(hash)}, err
	}
	return toTxReceipt(receipt, hash), err
}

func (c *Client) WithdrawEarnings(ctx context.Context, signer adapter.TxSigner) (adapter.WithdrawResult, error) {
	receipt, hash, err := c.sendTx(ctx, signer, c.escrow, parsedEscrow, "withdrawEarnings")
	if receipt == nil {
		return adapter.WithdrawResult{Receipt: adapter.TxReceipt{TxHash: submittedHash(hash)}}, err
	}
	res := adapter.WithdrawResult{Receipt: toTxReceipt(receipt, hash)}
	if err != nil {
		return res, err
	}
	if amount := c.decodeWithdrawAmount(receipt.Logs, signer.Address()); amount != nil {
		res.Amount = amount
		res.AmountFromEvent = true
	}
	return res, nil
}

func (c *Client) decodeWithdrawAmount(logs []*types.Log, performer string) *big.Int {
	event := parsedEscrow.Events["EarningsWithdrawn"]
	who := common.HexToAddress(performer)
	for _, lg := range logs {
		if lg == nil || lg.Address != c.escrow || len(lg.Topics) < 2 {
			continue
		}
		if lg.Topics[0] != event.ID {
			continue
		}
		if common.BytesToAddress(lg.Topics[1].Bytes()) != who {
			continue
		}
		out, err := parsedEscrow.Unpack("EarningsWithdrawn", lg.Data)
		if err != nil || len(out) == 0 {
			continue
		}
		if amount, ok := out[0].(*big.Int); ok {
			return amount
		}
	}
	return nil
}

// JobIDFromTx re-reads a creation receipt and re-attempts the JobCreated
// decode. Used by the reconciler to repair degraded job records.
func (c *Client) JobIDFromTx(ctx context.Context, txHash string) (*big.Int, error) {
	hash := common.HexToHash(txHash)
	var receipt *types.Receipt
	err := c.pool.do(ctx, func(ctx context.Context, ec *ethclient.Client) error {
		var err error
		receipt, err = ec.TransactionReceipt(ctx, hash)
		return err
	})
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: tx %s", domain.ErrChainExecutionFailed, txHash)
	}
	id := c.decodeJobCreated(receipt.Logs)
	if id == nil {
		return nil, fmt.Errorf("no decodable creation event in tx %s", txHash)
	}
	return id, nil
}
