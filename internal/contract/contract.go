// Package contract describes the on-chain surface the kudos client talks to:
// the CeloKudos contract ABI and the ERC-20 subset of the payment token.
package contract

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Method and event names used across the client.
const (
	MethodSendKudos        = "sendKudos"
	MethodGetKudosByID     = "getKudosById"
	MethodGetKudosSent     = "getKudosSent"
	MethodGetKudosReceived = "getKudosReceived"
	MethodGetPublicKudos   = "getPublicKudos"
	MethodGetUserStats     = "getUserStats"
	MethodGetPlatformStats = "getPlatformStats"
	MethodGetTotalKudos    = "getTotalKudos"
	MethodOwner            = "owner"
	MethodTokenAddress     = "CUSD_TOKEN"

	MethodApprove   = "approve"
	MethodAllowance = "allowance"
	MethodBalanceOf = "balanceOf"
	MethodDecimals  = "decimals"
	MethodSymbol    = "symbol"

	EventKudosSent     = "KudosSent"
	EventKudosReceived = "KudosReceived"
)

//go:embed CeloKudos.json
var kudosArtifact []byte

//go:embed ERC20.json
var tokenABIJSON []byte

var (
	kudosOnce sync.Once
	kudosABI  abi.ABI
	kudosErr  error

	tokenOnce sync.Once
	tokenABI  abi.ABI
	tokenErr  error
)

// Artifact is the subset of a Hardhat compilation artifact the client needs
type Artifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// ParsedABI decodes the artifact's ABI section
func (a *Artifact) ParsedABI() (abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(a.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse %s abi: %w", a.ContractName, err)
	}
	return parsed, nil
}

// Code returns the creation bytecode, failing when the artifact carries none
func (a *Artifact) Code() ([]byte, error) {
	raw := strings.TrimSpace(a.Bytecode)
	if raw == "" || raw == "0x" {
		return nil, fmt.Errorf("artifact %s has no bytecode", a.ContractName)
	}
	code, err := hexutil.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s bytecode: %w", a.ContractName, err)
	}
	return code, nil
}

// KudosABI returns the parsed CeloKudos ABI
func KudosABI() (abi.ABI, error) {
	kudosOnce.Do(func() {
		var artifact Artifact
		if err := json.Unmarshal(kudosArtifact, &artifact); err != nil {
			kudosErr = fmt.Errorf("failed to decode embedded artifact: %w", err)
			return
		}
		kudosABI, kudosErr = artifact.ParsedABI()
	})
	return kudosABI, kudosErr
}

// TokenABI returns the parsed ERC-20 ABI
func TokenABI() (abi.ABI, error) {
	tokenOnce.Do(func() {
		tokenABI, tokenErr = abi.JSON(bytes.NewReader(tokenABIJSON))
		if tokenErr != nil {
			tokenErr = fmt.Errorf("failed to parse token abi: %w", tokenErr)
		}
	})
	return tokenABI, tokenErr
}

// LoadArtifact reads a compiled Hardhat artifact from disk
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %s: %w", path, err)
	}
	if len(artifact.ABI) == 0 {
		return nil, fmt.Errorf("artifact %s has no abi", path)
	}
	if artifact.ContractName == "" {
		artifact.ContractName = "CeloKudos"
	}

	return &artifact, nil
}
