package market

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kkdrhn/GhostBroker/internal/clients"
)

const (
	// OracleConfidence is reported when the on-chain read succeeded.
	OracleConfidence = 0.98
	// FallbackConfidence is reported when the oracle was unreachable and the
	// last-known table price was used instead.
	FallbackConfidence = 0.70

	defaultOracleTimeout = 3 * time.Second
)

const oracleABIJSON = `[{"name":"getPrice","type":"function","stateMutability":"view",
"inputs":[{"name":"commodity","type":"bytes32"}],
"outputs":[{"name":"price","type":"uint256"}]}]`

// Oracle reads authoritative commodity prices from the oracle contract.
// Failures never propagate: every read yields a usable (price, confidence)
// pair, degrading to the table's last-known price on any error.
type Oracle struct {
	ledger   clients.Ledger
	contract common.Address
	table    *PriceTable
	abi      abi.ABI
	timeout  time.Duration
	logger   *zap.Logger
}

// NewOracle creates an oracle reader backed by the given ledger connection.
func NewOracle(ledger clients.Ledger, contract common.Address, table *PriceTable, timeout time.Duration, logger *zap.Logger) *Oracle {
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	parsed, err := abi.JSON(strings.NewReader(oracleABIJSON))
	if err != nil {
		// the ABI is a compile-time constant; failing to parse it is a bug
		panic(err)
	}
	return &Oracle{
		ledger:   ledger,
		contract: contract,
		table:    table,
		abi:      parsed,
		timeout:  timeout,
		logger:   logger,
	}
}

// FetchPrice returns the oracle price and confidence for a commodity.
// On any failure (network, timeout, malformed result) it falls back to the
// price table with a markedly lower confidence.
func (o *Oracle) FetchPrice(ctx context.Context, commodity string) (decimal.Decimal, float64) {
	price, err := o.readContract(ctx, commodity)
	if err != nil {
		o.logger.Debug("oracle fetch failed, using last-known price",
			zap.String("commodity", commodity), zap.Error(err))
		return o.fallback(commodity), FallbackConfidence
	}

	o.table.Update(commodity, price, OracleConfidence, SourceOracle, time.Now())
	return price, OracleConfidence
}

func (o *Oracle) readContract(ctx context.Context, commodity string) (decimal.Decimal, error) {
	if o.ledger == nil {
		return decimal.Zero, errNoLedger
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	data, err := o.abi.Pack("getPrice", commodityKey(commodity))
	if err != nil {
		return decimal.Zero, err
	}

	result, err := o.ledger.CallContract(ctx, ethereum.CallMsg{To: &o.contract, Data: data}, nil)
	if err != nil {
		return decimal.Zero, err
	}

	out, err := o.abi.Unpack("getPrice", result)
	if err != nil {
		return decimal.Zero, err
	}
	raw, ok := out[0].(*big.Int)
	if !ok {
		return decimal.Zero, errBadOracleResult
	}

	// prices are stored as 18-decimal fixed point on-chain
	return decimal.NewFromBigInt(raw, -18), nil
}

func (o *Oracle) fallback(commodity string) decimal.Decimal {
	if point, ok := o.table.Lookup(commodity); ok {
		return point.Price
	}
	return decimal.NewFromInt(1)
}

// commodityKey converts a commodity name to its bytes32 form: ASCII bytes
// right-padded with zeros, matching the oracle contract's key scheme.
func commodityKey(commodity string) [32]byte {
	var key [32]byte
	copy(key[:], commodity)
	return key
}
