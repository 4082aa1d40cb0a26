package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"yudha/internal/config"
	"yudha/internal/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const arenaABIJSON = `[
  {"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"_player","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"deductPlay","type":"function","stateMutability":"nonpayable","inputs":[{"name":"_player","type":"address"},{"name":"_amount","type":"uint256"}],"outputs":[]}
]`

const treasuryABIJSON = `[
  {"name":"sweepProfit","type":"function","stateMutability":"nonpayable","inputs":[{"name":"_agent","type":"address"},{"name":"_amount","type":"uint256"}],"outputs":[]},
  {"name":"ProfitSwept","type":"event","anonymous":false,"inputs":[{"name":"agent","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]}
]`

const (
	eventLookback = 10_000
	fallbackGas   = 150_000
	dialTimeout   = 10 * time.Second
)

// EVMClient talks to the arena and treasury contracts over JSON-RPC.
// All writes are signed locally and awaited synchronously.
type EVMClient struct {
	cfg         config.ChainConfig
	eth         *ethclient.Client
	chainID     *big.Int
	arenaABI    abi.ABI
	treasuryABI abi.ABI
	ownerKey    *ecdsa.PrivateKey
	agentKey    *ecdsa.PrivateKey
	confirmWait time.Duration
}

func NewEVMClient(cfg config.ChainConfig) (*EVMClient, error) {
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return nil, fmt.Errorf("chain: rpc_url is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	arenaABI, err := abi.JSON(strings.NewReader(arenaABIJSON))
	if err != nil {
		return nil, err
	}
	treasuryABI, err := abi.JSON(strings.NewReader(treasuryABIJSON))
	if err != nil {
		return nil, err
	}
	c := &EVMClient{
		cfg:         cfg,
		eth:         eth,
		chainID:     chainID,
		arenaABI:    arenaABI,
		treasuryABI: treasuryABI,
		confirmWait: time.Duration(cfg.ConfirmTimeoutSeconds) * time.Second,
	}
	if c.confirmWait <= 0 {
		c.confirmWait = 2 * time.Minute
	}
	if key := strings.TrimSpace(cfg.TreasuryOwnerKey); key != "" {
		if c.ownerKey, err = parseKey(key); err != nil {
			return nil, fmt.Errorf("chain: treasury owner key: %w", err)
		}
	}
	if key := strings.TrimSpace(cfg.AgentWalletKey); key != "" {
		if c.agentKey, err = parseKey(key); err != nil {
			return nil, fmt.Errorf("chain: agent wallet key: %w", err)
		}
	}
	return c, nil
}

func parseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
}

func (c *EVMClient) Close() {
	if c != nil && c.eth != nil {
		c.eth.Close()
	}
}

func (c *EVMClient) Enabled() bool {
	return c != nil && c.cfg.Enabled() && c.ownerKey != nil
}

func (c *EVMClient) ArenaBalance(ctx context.Context, wallet string) (float64, error) {
	arena := strings.TrimSpace(c.cfg.ArenaAddress)
	if arena == "" || wallet == "" {
		return 0, nil
	}
	data, err := c.arenaABI.Pack("balanceOf", common.HexToAddress(wallet))
	if err != nil {
		return 0, err
	}
	to := common.HexToAddress(arena)
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("chain: balanceOf: %w", err)
	}
	vals, err := c.arenaABI.Unpack("balanceOf", out)
	if err != nil || len(vals) == 0 {
		return 0, fmt.Errorf("chain: balanceOf unpack failed")
	}
	bal, ok := vals[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("chain: balanceOf returned non-integer")
	}
	return FromBaseUnits(bal), nil
}

func (c *EVMClient) DeductPlay(ctx context.Context, wallet string, amount float64) (TxResult, error) {
	arena := strings.TrimSpace(c.cfg.ArenaAddress)
	if arena == "" {
		return TxResult{}, fmt.Errorf("chain: arena contract not configured")
	}
	key := c.agentKey
	if key == nil {
		key = c.ownerKey
	}
	if key == nil {
		return TxResult{}, fmt.Errorf("chain: no signer for deduct")
	}
	data, err := c.arenaABI.Pack("deductPlay", common.HexToAddress(wallet), ToBaseUnits(amount))
	if err != nil {
		return TxResult{}, err
	}
	return c.submitAndWait(ctx, key, common.HexToAddress(arena), data)
}

func (c *EVMClient) SweepProfit(ctx context.Context, agentWallet string, amount float64) (TxResult, error) {
	treasury := strings.TrimSpace(c.cfg.TreasuryAddress)
	if treasury == "" || c.ownerKey == nil {
		return TxResult{}, fmt.Errorf("chain: treasury not configured")
	}
	data, err := c.treasuryABI.Pack("sweepProfit", common.HexToAddress(agentWallet), ToBaseUnits(amount))
	if err != nil {
		return TxResult{}, err
	}
	return c.submitAndWait(ctx, c.ownerKey, common.HexToAddress(treasury), data)
}

// submitAndWait signs, broadcasts and blocks until the receipt lands or the
// confirmation window expires. Fire-and-forget is not allowed: persistence
// downstream needs the final outcome.
func (c *EVMClient) submitAndWait(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, data []byte) (TxResult, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return TxResult{}, fmt.Errorf("chain: nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return TxResult{}, fmt.Errorf("chain: gas price: %w", err)
	}
	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		logger.Debugf("[chain] gas estimate failed, using fallback: %v", err)
		gasLimit = fallbackGas
	}
	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return TxResult{}, fmt.Errorf("chain: sign: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return TxResult{}, fmt.Errorf("chain: send: %w", err)
	}
	hash := signed.Hash().Hex()
	logger.Infof("[chain] tx submitted %s", hash)

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmWait)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.eth, signed)
	if err != nil {
		return TxResult{TxHash: hash}, fmt.Errorf("chain: confirmation: %w", err)
	}
	return TxResult{Success: receipt.Status == types.ReceiptStatusSuccessful, TxHash: hash}, nil
}

func (c *EVMClient) ProfitSweptEvents(ctx context.Context, fromBlock, toBlock *int64) ([]SweepEvent, error) {
	treasury := strings.TrimSpace(c.cfg.TreasuryAddress)
	if treasury == "" {
		return nil, nil
	}
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain: head block: %w", err)
	}
	query := ethereum.FilterQuery{
		Addresses: []common.Address{common.HexToAddress(treasury)},
		Topics:    [][]common.Hash{{c.treasuryABI.Events["ProfitSwept"].ID}},
	}
	if fromBlock != nil && *fromBlock >= 0 {
		query.FromBlock = big.NewInt(*fromBlock)
	} else {
		start := int64(head) - eventLookback
		if start < 0 {
			start = 0
		}
		query.FromBlock = big.NewInt(start)
	}
	if toBlock != nil && *toBlock >= 0 {
		query.ToBlock = big.NewInt(*toBlock)
	}
	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("chain: filter logs: %w", err)
	}
	events := make([]SweepEvent, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) < 2 {
			continue
		}
		events = append(events, SweepEvent{
			Agent:       common.HexToAddress(lg.Topics[1].Hex()).Hex(),
			Amount:      new(big.Int).SetBytes(lg.Data).String(),
			BlockNumber: lg.BlockNumber,
			TxHash:      lg.TxHash.Hex(),
		})
	}
	return events, nil
}
