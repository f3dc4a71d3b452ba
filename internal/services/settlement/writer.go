// Package settlement signs and submits agent decisions to the ledger from a
// single funded keeper account.
package settlement

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kkdrhn/GhostBroker/internal/clients"
	"github.com/kkdrhn/GhostBroker/internal/domain"
)

const (
	defaultReceiptTimeout = 10 * time.Second
	receiptPollInterval   = 200 * time.Millisecond

	// gas limit generous enough for both contract calls
	txGasLimit = 300_000

	sideBid uint8 = 0
	sideAsk uint8 = 1
)

// ABI fragments for the two on-chain operations.
const marketABIJSON = `[{"name":"postOrder","type":"function","stateMutability":"nonpayable",
"inputs":[{"name":"agentId","type":"uint256"},{"name":"commodity","type":"bytes32"},
{"name":"side","type":"uint8"},{"name":"price","type":"uint256"},
{"name":"qty","type":"uint256"},{"name":"ttlBlocks","type":"uint64"}],
"outputs":[{"name":"orderId","type":"bytes32"}]}]`

const agentABIJSON = `[{"name":"recordTick","type":"function","stateMutability":"nonpayable",
"inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]}]`

// Writer submits decisions on-chain, signing with the keeper key on behalf of
// all agents. Submissions are serialized by a mutex: the keeper nonce is
// read-then-used, so there must never be two in-flight transactions for the
// same signing identity.
type Writer struct {
	ledger         clients.Ledger
	key            *ecdsa.PrivateKey
	keeper         common.Address
	chainID        *big.Int
	marketContract common.Address
	agentContract  common.Address
	marketABI      abi.ABI
	agentABI       abi.ABI
	receiptTimeout time.Duration
	logger         *zap.Logger

	mu sync.Mutex
}

// NewWriter creates a settlement writer for the given keeper key.
func NewWriter(ledger clients.Ledger, keeperKeyHex string, chainID int64,
	marketContract, agentContract common.Address, receiptTimeout time.Duration, logger *zap.Logger) (*Writer, error) {

	keyHex := strings.TrimPrefix(strings.TrimPrefix(keeperKeyHex, "0x"), "0X")
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, errors.Wrap(err, "invalid keeper private key")
	}

	marketABI, err := abi.JSON(strings.NewReader(marketABIJSON))
	if err != nil {
		return nil, errors.Wrap(err, "parse market ABI")
	}
	agentABI, err := abi.JSON(strings.NewReader(agentABIJSON))
	if err != nil {
		return nil, errors.Wrap(err, "parse agent ABI")
	}

	if receiptTimeout <= 0 {
		receiptTimeout = defaultReceiptTimeout
	}

	return &Writer{
		ledger:         ledger,
		key:            key,
		keeper:         crypto.PubkeyToAddress(key.PublicKey),
		chainID:        big.NewInt(chainID),
		marketContract: marketContract,
		agentContract:  agentContract,
		marketABI:      marketABI,
		agentABI:       agentABI,
		receiptTimeout: receiptTimeout,
		logger:         logger,
	}, nil
}

// KeeperAddress returns the address derived from the keeper key.
func (w *Writer) KeeperAddress() common.Address {
	return w.keeper
}

// WriteDecision translates a Decision into on-chain calls:
//   - every decision first records the tick for the agent (audit trail)
//   - BID/ASK additionally post the order on the market contract
//   - HOLD/PARTNER produce only the tick record
//
// All failures are absorbed into the result; the caller treats a failed
// result as "this agent's tick did not settle" and moves on. There is no
// retry here: the next tick's record call re-establishes continuity.
func (w *Writer) WriteDecision(ctx context.Context, decision *domain.Decision, tokenID uint64) domain.SettlementResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	result := domain.SettlementResult{AgentID: decision.AgentID}

	tickTx, err := w.recordTick(ctx, tokenID)
	if err != nil {
		w.logger.Error("recordTick failed",
			zap.String("agent", decision.AgentID), zap.Uint64("token_id", tokenID), zap.Error(err))
		result.Err = err.Error()
		return result
	}
	result.TickTx = tickTx
	w.logger.Info("tick recorded",
		zap.String("agent", decision.AgentID), zap.String("tx", tickTx))

	if decision.Action.Directional() {
		orderTx, err := w.postOrder(ctx, decision, tokenID)
		if err != nil {
			w.logger.Error("postOrder failed",
				zap.String("agent", decision.AgentID), zap.String("action", decision.Action.String()), zap.Error(err))
			result.Err = err.Error()
			return result
		}
		result.OrderTx = orderTx
		w.logger.Info("order posted",
			zap.String("agent", decision.AgentID),
			zap.String("action", decision.Action.String()),
			zap.String("commodity", decision.Commodity),
			zap.String("price", decision.Price.String()),
			zap.String("qty", decision.Qty.String()),
			zap.String("tx", orderTx))
	}

	return result
}

func (w *Writer) recordTick(ctx context.Context, tokenID uint64) (string, error) {
	data, err := w.agentABI.Pack("recordTick", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return "", errors.Wrap(err, "pack recordTick")
	}
	return w.submit(ctx, w.agentContract, data)
}

func (w *Writer) postOrder(ctx context.Context, decision *domain.Decision, tokenID uint64) (string, error) {
	side := sideBid
	if decision.Action == domain.ActionAsk {
		side = sideAsk
	}

	data, err := w.marketABI.Pack("postOrder",
		new(big.Int).SetUint64(tokenID),
		commodityHash(decision.Commodity),
		side,
		toFixedPoint(decision.Price),
		toFixedPoint(decision.Qty),
		decision.TTLBlocks,
	)
	if err != nil {
		return "", errors.Wrap(err, "pack postOrder")
	}
	return w.submit(ctx, w.marketContract, data)
}

// submit reads the keeper nonce and gas price, signs the transaction locally,
// sends it and waits for its receipt.
func (w *Writer) submit(ctx context.Context, to common.Address, data []byte) (string, error) {
	nonce, err := w.ledger.PendingNonceAt(ctx, w.keeper)
	if err != nil {
		return "", errors.Wrap(err, "read nonce")
	}

	gasPrice, err := w.ledger.SuggestGasPrice(ctx)
	if err != nil {
		return "", errors.Wrap(err, "read gas price")
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), txGasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(w.chainID), w.key)
	if err != nil {
		return "", errors.Wrap(err, "sign transaction")
	}

	if err := w.ledger.SendTransaction(ctx, signed); err != nil {
		return "", errors.Wrap(err, "send transaction")
	}

	if err := w.waitReceipt(ctx, signed.Hash()); err != nil {
		return "", err
	}
	return signed.Hash().Hex(), nil
}

func (w *Writer) waitReceipt(ctx context.Context, hash common.Hash) error {
	ctx, cancel := context.WithTimeout(ctx, w.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.ledger.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return errors.Errorf("transaction %s reverted", hash.Hex())
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return errors.Wrap(err, "fetch receipt")
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "receipt wait for %s timed out", hash.Hex())
		case <-ticker.C:
		}
	}
}

// commodityHash converts a commodity name to its bytes32 keccak256 hash,
// matching the market contract's key scheme.
func commodityHash(commodity string) [32]byte {
	return crypto.Keccak256Hash([]byte(commodity))
}

// toFixedPoint scales a decimal to the 18-decimal integer representation used
// on-chain.
func toFixedPoint(value decimal.Decimal) *big.Int {
	return value.Shift(18).Truncate(0).BigInt()
}
