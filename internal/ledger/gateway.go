// Package ledger translates domain operations into signed transactions and
// read-only calls against the OrganChain and HopeToken contracts.
package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/Shiva-74/HopeConnect/database"
)

// weiPerToken converts whole HOPE tokens to the 18-decimal on-chain unit.
var weiPerToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// defaultCallTimeout bounds one gateway operation end to end, including the
// wait for the receipt. A stalled node must not pin the calling request
// forever.
const defaultCallTimeout = 90 * time.Second

// Config holds the gateway's connection settings. Any of NodeURL,
// PrivateKeyHex, or OrganChainAddress being empty leaves the gateway
// unconfigured: every operation then returns ErrNotConfigured and callers
// degrade per their own policy.
type Config struct {
	NodeURL           string
	OrganChainAddress string
	TokenAddress      string
	PrivateKeyHex     string
	ChainID           int64
	CallTimeout       time.Duration
}

// ConfigFromEnv reads the gateway configuration from the environment.
func ConfigFromEnv() Config {
	chainID, _ := strconv.ParseInt(database.GetEnvDefault("ETH_CHAIN_ID", "1337"), 10, 64)
	timeoutSec, _ := strconv.ParseInt(database.GetEnvDefault("ETH_CALL_TIMEOUT_SECONDS", "90"), 10, 64)
	return Config{
		NodeURL:           database.GetEnvDefault("ETH_NODE_URL", ""),
		OrganChainAddress: database.GetEnvDefault("ORGAN_CHAIN_CONTRACT_ADDRESS", ""),
		TokenAddress:      database.GetEnvDefault("HOPE_TOKEN_CONTRACT_ADDRESS", ""),
		PrivateKeyHex:     database.GetEnvDefault("ADMIN_ETH_PRIVATE_KEY", ""),
		ChainID:           chainID,
		CallTimeout:       time.Duration(timeoutSec) * time.Second,
	}
}

// Gateway signs and submits contract transactions from the service's
// custodial operating account. It performs no retries and provides no
// idempotency; a caller that retries a write risks double submission.
type Gateway struct {
	client      *ethclient.Client
	log         *zap.Logger
	key         *ecdsa.PrivateKey
	from        common.Address
	chainID     *big.Int
	organChain  abi.ABI
	token       abi.ABI
	organAddr   common.Address
	tokenAddr   common.Address
	callTimeout time.Duration
	configured  bool
}

// NewGateway builds a gateway from the config. An incomplete config yields
// a disabled gateway, not an error, so the service can run ledger-less.
func NewGateway(cfg Config, log *zap.Logger) (*Gateway, error) {
	g := &Gateway{log: log}

	organChain, err := abi.JSON(strings.NewReader(organChainABI))
	if err != nil {
		return nil, fmt.Errorf("parsing OrganChain ABI: %w", err)
	}
	token, err := abi.JSON(strings.NewReader(hopeTokenABI))
	if err != nil {
		return nil, fmt.Errorf("parsing HopeToken ABI: %w", err)
	}
	g.organChain = organChain
	g.token = token
	g.callTimeout = cfg.CallTimeout
	if g.callTimeout <= 0 {
		g.callTimeout = defaultCallTimeout
	}

	if cfg.NodeURL == "" || cfg.PrivateKeyHex == "" || cfg.OrganChainAddress == "" {
		log.Warn("ledger gateway not configured, on-chain operations disabled")
		return g, nil
	}

	client, err := ethclient.Dial(cfg.NodeURL)
	if err != nil {
		return nil, fmt.Errorf("dialing eth node: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing operating key: %w", err)
	}

	g.client = client
	g.key = key
	g.from = crypto.PubkeyToAddress(key.PublicKey)
	g.chainID = big.NewInt(cfg.ChainID)
	g.organAddr = common.HexToAddress(cfg.OrganChainAddress)
	g.tokenAddr = common.HexToAddress(cfg.TokenAddress)
	g.configured = true

	log.Info("ledger gateway ready",
		zap.String("operating_account", g.from.Hex()),
		zap.String("organ_chain", g.organAddr.Hex()),
		zap.Int64("chain_id", cfg.ChainID))
	return g, nil
}

// Configured reports whether the gateway can perform on-chain operations.
func (g *Gateway) Configured() bool { return g.configured }

// transact packs, estimates, signs, submits one contract call and waits for
// its receipt. The whole pipeline runs under the gateway's call timeout; a
// transaction submitted but not mined within it surfaces as a SubmitError
// with an unknown on-chain outcome. The gas limit is the node's estimate
// with a 1.2x safety margin. Estimation failures are classified as reverts
// since the node simulates the call to estimate it.
func (g *Gateway) transact(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) (*types.Receipt, string, error) {
	if !g.configured {
		return nil, "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, "", fmt.Errorf("packing %s call: %w", method, err)
	}

	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, "", &SubmitError{Method: method, Err: err}
	}

	estimate, err := g.client.EstimateGas(ctx, ethereum.CallMsg{
		From:     g.from,
		To:       &to,
		GasPrice: gasPrice,
		Data:     input,
	})
	if err != nil {
		return nil, "", &RevertError{Method: method, Err: err}
	}
	gasLimit := estimate + estimate/5

	nonce, err := g.client.PendingNonceAt(ctx, g.from)
	if err != nil {
		return nil, "", &SubmitError{Method: method, Err: err}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Data:     input,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), g.key)
	if err != nil {
		return nil, "", fmt.Errorf("signing %s transaction: %w", method, err)
	}

	if err := g.client.SendTransaction(ctx, signed); err != nil {
		return nil, "", &SubmitError{Method: method, Err: err}
	}

	receipt, err := bind.WaitMined(ctx, g.client, signed)
	if err != nil {
		return nil, "", &SubmitError{Method: method, Err: err}
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, "", &RevertError{Method: method, Err: fmt.Errorf("transaction %s reverted", signed.Hash().Hex())}
	}

	g.log.Info("ledger transaction mined",
		zap.String("method", method),
		zap.String("tx", signed.Hash().Hex()),
		zap.Uint64("gas_used", receipt.GasUsed))
	return receipt, signed.Hash().Hex(), nil
}

// RegisterDonor records a donor profile on chain, binding the DID to the
// donor's reward address.
func (g *Gateway) RegisterDonor(ctx context.Context, donorDID, ethAddress string) (string, error) {
	_, hash, err := g.transact(ctx, g.organAddr, g.organChain,
		"registerDonorProfileOnChain", donorDID, common.HexToAddress(ethAddress))
	return hash, err
}

// RegisterOrgan registers an organ instance on chain and returns the
// contract-assigned organ id parsed from the OrganRegisteredForDID event.
// A mined transaction missing the event is flagged but not failed; the
// organ id is then empty.
func (g *Gateway) RegisterOrgan(ctx context.Context, donorDID string, organCode uint8, hospitalDID string) (string, string, error) {
	receipt, hash, err := g.transact(ctx, g.organAddr, g.organChain,
		"registerOrgan", donorDID, organCode, hospitalDID)
	if err != nil {
		return "", "", err
	}

	organID, found := g.parseOrganID(receipt.Logs)
	if !found {
		g.log.Warn("organ registration mined without expected event",
			zap.String("tx", hash),
			zap.String("donor_did", donorDID))
	}
	return hash, organID, nil
}

// parseOrganID scans receipt logs for the OrganRegisteredForDID event and
// extracts the contract-assigned organ id.
func (g *Gateway) parseOrganID(logs []*types.Log) (string, bool) {
	eventID := g.organChain.Events[organRegisteredEvent].ID
	for _, rlog := range logs {
		if len(rlog.Topics) == 0 || rlog.Topics[0] != eventID {
			continue
		}
		vals, err := g.organChain.Unpack(organRegisteredEvent, rlog.Data)
		if err != nil || len(vals) == 0 {
			continue
		}
		if organID, ok := vals[0].(*big.Int); ok {
			return organID.String(), true
		}
	}
	return "", false
}

// UpdateOrganStatus notarizes a journey status milestone.
func (g *Gateway) UpdateOrganStatus(ctx context.Context, journeyID string, code uint8, notes, holderDID string) (string, error) {
	_, hash, err := g.transact(ctx, g.organAddr, g.organChain,
		"updateOrganStatusByDID", journeyID, code, notes, holderDID)
	return hash, err
}

// RecordOutcome notarizes a transplant outcome.
func (g *Gateway) RecordOutcome(ctx context.Context, journeyID string, success bool, anonymized, notes string) (string, error) {
	_, hash, err := g.transact(ctx, g.organAddr, g.organChain,
		"recordTransplantOutcome", journeyID, success, anonymized, notes)
	return hash, err
}

// MintTokens mints whole HOPE tokens to the given address.
func (g *Gateway) MintTokens(ctx context.Context, to string, amount int64) (string, error) {
	wei := new(big.Int).Mul(big.NewInt(amount), weiPerToken)
	_, hash, err := g.transact(ctx, g.tokenAddr, g.token,
		"mint", common.HexToAddress(to), wei)
	return hash, err
}

// BurnForRedemption burns whole HOPE tokens from the given address.
func (g *Gateway) BurnForRedemption(ctx context.Context, from string, amount int64) (string, error) {
	wei := new(big.Int).Mul(big.NewInt(amount), weiPerToken)
	_, hash, err := g.transact(ctx, g.tokenAddr, g.token,
		"burnForRedemption", common.HexToAddress(from), wei)
	return hash, err
}

// TokenBalance reads an address's HOPE balance in whole tokens. A node
// failure surfaces as ErrUnavailable so callers can answer 503 instead of
// crashing.
func (g *Gateway) TokenBalance(ctx context.Context, address string) (int64, error) {
	if !g.configured {
		return 0, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	input, err := g.token.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return 0, fmt.Errorf("packing balanceOf call: %w", err)
	}

	out, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &g.tokenAddr, Data: input}, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	vals, err := g.token.Unpack("balanceOf", out)
	if err != nil || len(vals) == 0 {
		return 0, fmt.Errorf("decoding balanceOf result: %w", err)
	}
	balance, ok := vals[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected balanceOf result type %T", vals[0])
	}

	return new(big.Int).Div(balance, weiPerToken).Int64(), nil
}
