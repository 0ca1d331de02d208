// Package deploy publishes the CeloKudos contract and reports what landed
// on chain.
package deploy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"celokudos/internal/chain"
	"celokudos/internal/contract"
	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Summary describes a finished deployment
type Summary struct {
	Address common.Address
	TxHash  common.Hash
	Owner   common.Address
	Token   common.Address
	Network string
	ChainID *big.Int
}

// Print writes the summary lines
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "CeloKudos deployed to: %s\n", s.Address.Hex())
	fmt.Fprintf(w, "Transaction: %s\n", s.TxHash.Hex())
	fmt.Fprintf(w, "Owner: %s\n", s.Owner.Hex())
	fmt.Fprintf(w, "cUSD Token: %s\n", s.Token.Hex())
	fmt.Fprintf(w, "Network: %s\n", s.Network)
	fmt.Fprintf(w, "Chain ID: %s\n", s.ChainID)
}

// Deployer deploys the contract from a compiled artifact
type Deployer struct {
	backend  chain.Backend
	artifact *contract.Artifact
	network  string
	client   chain.Config
}

// NewDeployer creates a deployer. client carries the read settings used
// to verify the deployed contract; its addresses are filled in by Deploy.
func NewDeployer(backend chain.Backend, artifact *contract.Artifact, network string, client chain.Config) *Deployer {
	return &Deployer{
		backend:  backend,
		artifact: artifact,
		network:  network,
		client:   client,
	}
}

// Deploy publishes the contract with the session's address as initial
// owner, waits for the code to appear and reads back owner and token
func (d *Deployer) Deploy(ctx context.Context, session *wallet.Session) (*Summary, error) {
	parsed, err := d.artifact.ParsedABI()
	if err != nil {
		return nil, err
	}
	code, err := d.artifact.Code()
	if err != nil {
		return nil, err
	}

	opts, err := session.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("Deploying contract",
		"contract", d.artifact.ContractName,
		"deployer", session.Address().Hex(),
		"network", d.network,
	)

	address, tx, _, err := bind.DeployContract(opts, parsed, code, d.backend, session.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", d.artifact.ContractName, err)
	}
	slog.Info("Deployment submitted", "tx_hash", tx.Hash().Hex(), "address", address.Hex())

	if _, err := bind.WaitDeployed(ctx, d.backend, tx); err != nil {
		return nil, fmt.Errorf("failed to wait for deployment: %w", err)
	}

	cfg := d.client
	cfg.KudosAddress = address
	client, err := chain.NewClient(d.backend, cfg)
	if err != nil {
		return nil, err
	}

	owner, err := client.Owner(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read owner: %w", err)
	}
	token, err := client.LinkedToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read token address: %w", err)
	}

	chainID, err := d.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	return &Summary{
		Address: address,
		TxHash:  tx.Hash(),
		Owner:   owner,
		Token:   token,
		Network: d.network,
		ChainID: chainID,
	}, nil
}
