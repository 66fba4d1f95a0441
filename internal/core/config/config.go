package config

import (
	"fmt"
	"math/big"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/banter-chat/banter/internal/core/domain"
	redisclient "github.com/banter-chat/banter/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Node     NodeConfig         `yaml:"node"`
	Contract ContractConfig     `yaml:"contract"`
	Wallet   WalletConfig       `yaml:"wallet"`
	Gas      GasConfig          `yaml:"gas"`
	RPC      RPCConfig          `yaml:"rpc"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds the health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// NodeConfig holds the ledger node connection settings.
type NodeConfig struct {
	// WSURL is the websocket RPC endpoint. Only secure websocket (wss)
	// schemes are accepted.
	WSURL string `yaml:"ws_url"`
	// ChainID is the numeric chain identifier, kept textual so it can be
	// env-substituted; it must parse as a non-negative integer.
	ChainID string `yaml:"chain_id"`
}

// ContractConfig holds the deployed contract addresses.
type ContractConfig struct {
	ChatList string `yaml:"chat_list"`
}

// WalletConfig holds the caller's identity. PrivateKey is optional; without
// it the client runs read-only. Address may be given alone (read-only) or
// alongside the key, in which case the two must agree.
type WalletConfig struct {
	PrivateKey string `yaml:"private_key"`
	Address    string `yaml:"address"`
}

// GasConfig tunes fee estimation and gas limits.
type GasConfig struct {
	// LimitMargin multiplies the node's gas estimate to set the gas limit.
	LimitMargin float64 `yaml:"limit_margin"`
	// FeeMultiplier scales the suggested gas price into maxFeePerGas.
	FeeMultiplier float64 `yaml:"fee_multiplier"`
	// PriorityTipGwei is the fixed priority tip, clamped to maxFeePerGas.
	PriorityTipGwei int64 `yaml:"priority_tip_gwei"`
}

// RPCConfig tunes the transport adapter.
type RPCConfig struct {
	// RateLimit caps outgoing node calls per second. 0 = unlimited.
	RateLimit float64 `yaml:"rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ChainIDInt returns the parsed chain identifier. Call Validate first.
func (n NodeConfig) ChainIDInt() *big.Int {
	id, _ := strconv.ParseUint(n.ChainID, 10, 64)
	return new(big.Int).SetUint64(id)
}

// ChatListAddress returns the parsed chat list contract address.
func (c ContractConfig) ChatListAddress() common.Address {
	return common.HexToAddress(c.ChatList)
}

// Validate checks the configuration before any client is constructed.
// Violations fail fast with a descriptive error instead of attempting a
// connection.
func (c *AppConfig) Validate() error {
	u, err := url.Parse(c.Node.WSURL)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("%w: node.ws_url %q is not a valid URL", domain.ErrConfiguration, c.Node.WSURL)
	}
	if u.Scheme != "wss" {
		return fmt.Errorf("%w: node.ws_url must use the wss scheme, got %q", domain.ErrConfiguration, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: node.ws_url is missing a host", domain.ErrConfiguration)
	}

	if _, err := strconv.ParseUint(c.Node.ChainID, 10, 64); err != nil {
		return fmt.Errorf("%w: node.chain_id %q must be a non-negative integer", domain.ErrConfiguration, c.Node.ChainID)
	}

	if !common.IsHexAddress(c.Contract.ChatList) {
		return fmt.Errorf("%w: contract.chat_list %q is not a hex address", domain.ErrConfiguration, c.Contract.ChatList)
	}

	if c.Wallet.Address != "" && !common.IsHexAddress(c.Wallet.Address) {
		return fmt.Errorf("%w: wallet.address %q is not a hex address", domain.ErrConfiguration, c.Wallet.Address)
	}

	if c.Wallet.PrivateKey != "" {
		key, err := crypto.HexToECDSA(c.Wallet.PrivateKey)
		if err != nil {
			return fmt.Errorf("%w: wallet.private_key is not a valid key", domain.ErrConfiguration)
		}
		if c.Wallet.Address != "" {
			derived := crypto.PubkeyToAddress(key.PublicKey)
			if derived != common.HexToAddress(c.Wallet.Address) {
				return fmt.Errorf("%w: wallet.address does not match wallet.private_key", domain.ErrConfiguration)
			}
		}
	} else if c.Wallet.Address == "" {
		return fmt.Errorf("%w: one of wallet.private_key or wallet.address is required", domain.ErrConfiguration)
	}

	if c.Gas.LimitMargin < 1 {
		return fmt.Errorf("%w: gas.limit_margin must be >= 1, got %v", domain.ErrConfiguration, c.Gas.LimitMargin)
	}
	if c.Gas.FeeMultiplier <= 0 {
		return fmt.Errorf("%w: gas.fee_multiplier must be positive, got %v", domain.ErrConfiguration, c.Gas.FeeMultiplier)
	}
	if c.Gas.PriorityTipGwei < 0 {
		return fmt.Errorf("%w: gas.priority_tip_gwei must be non-negative, got %d", domain.ErrConfiguration, c.Gas.PriorityTipGwei)
	}
	if c.RPC.RateLimit < 0 {
		return fmt.Errorf("%w: rpc.rate_limit must be non-negative, got %v", domain.ErrConfiguration, c.RPC.RateLimit)
	}

	return nil
}

// CallerAddress returns the configured caller identity: the address derived
// from the private key when present, the explicit address otherwise.
func (c *AppConfig) CallerAddress() common.Address {
	if c.Wallet.PrivateKey != "" {
		if key, err := crypto.HexToECDSA(c.Wallet.PrivateKey); err == nil {
			return crypto.PubkeyToAddress(key.PublicKey)
		}
	}
	return common.HexToAddress(c.Wallet.Address)
}
