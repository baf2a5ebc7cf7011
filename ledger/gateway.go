// Package ledger talks to the marketplace contracts through a soroban
// gateway service. Reads decode straight to records; signed invocations
// are submitted and then polled until the gateway reports a terminal
// transaction status or the confirm timeout expires.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/filswan/go-swan-lib/logs"
	"golang.org/x/xerrors"

	"github.com/carrotlabs/go-carrot-market/wallet"
)

var (
	// ErrAbsent means the ledger holds no record for the queried id.
	ErrAbsent = errors.New("record absent")
	// ErrContractCall means the ledger rejected or could not execute a call.
	ErrContractCall = errors.New("contract call failed")
	// ErrIndeterminate means no terminal confirmation was observed before
	// the timeout. The call must not be blindly retried.
	ErrIndeterminate = errors.New("confirmation not observed")
)

const confirmPollInterval = 3 * time.Second

// Signer produces a signature for a payload on behalf of an address.
// *wallet.LocalWallet satisfies it.
type Signer interface {
	WalletSign(ctx context.Context, addr string, msg []byte) (string, error)
}

// Backend is the narrow contract-call surface the rest of the client sees.
type Backend interface {
	ReadCall(ctx context.Context, contract, method string, args ...interface{}) (json.RawMessage, error)
	SignedCall(ctx context.Context, session *wallet.Session, contract, method string, args ...interface{}) (json.RawMessage, error)
}

type GatewayClient struct {
	baseUrl        string
	accessToken    string
	network        string
	signer         Signer
	confirmTimeout time.Duration
	pollInterval   time.Duration

	client *http.Client
}

func NewGatewayClient(baseUrl, accessToken, network string, signer Signer, confirmTimeout time.Duration) *GatewayClient {
	if confirmTimeout <= 0 {
		confirmTimeout = 3 * time.Minute
	}
	return &GatewayClient{
		baseUrl:        baseUrl,
		accessToken:    accessToken,
		network:        network,
		signer:         signer,
		confirmTimeout: confirmTimeout,
		pollInterval:   confirmPollInterval,
		client:         &http.Client{Timeout: 30 * time.Second},
	}
}

type callRequest struct {
	Contract  string        `json:"contract"`
	Method    string        `json:"method"`
	Args      []interface{} `json:"args"`
	Network   string        `json:"network"`
	Source    string        `json:"source,omitempty"`
	Signature string        `json:"signature,omitempty"`
}

type callResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	TxHash  string          `json:"tx_hash,omitempty"`
}

type txStatusResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

func (g *GatewayClient) ReadCall(ctx context.Context, contract, method string, args ...interface{}) (json.RawMessage, error) {
	resp, err := g.post(ctx, "/api/v1/contracts/read", callRequest{
		Contract: contract,
		Method:   method,
		Args:     normalizeArgs(args),
		Network:  g.network,
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (g *GatewayClient) SignedCall(ctx context.Context, session *wallet.Session, contract, method string, args ...interface{}) (json.RawMessage, error) {
	if session == nil {
		return nil, xerrors.Errorf("no active wallet session: %w", ErrContractCall)
	}

	payload, err := invocationDigest(contract, method, args)
	if err != nil {
		return nil, xerrors.Errorf("encoding invocation: %w", err)
	}
	signature, err := g.signer.WalletSign(ctx, session.Address, payload)
	if err != nil {
		return nil, xerrors.Errorf("signing invocation: %w", err)
	}

	resp, err := g.post(ctx, "/api/v1/contracts/invoke", callRequest{
		Contract:  contract,
		Method:    method,
		Args:      normalizeArgs(args),
		Network:   session.Network,
		Source:    session.Address,
		Signature: signature,
	})
	if err != nil {
		return nil, err
	}
	if resp.TxHash == "" {
		return nil, xerrors.Errorf("gateway returned no transaction hash: %w", ErrContractCall)
	}

	return g.waitConfirmed(ctx, resp.TxHash)
}

// waitConfirmed polls the transaction until the gateway reports a terminal
// status. Not observing one before the timeout is an indeterminate outcome,
// never a retry.
func (g *GatewayClient) waitConfirmed(ctx context.Context, txHash string) (json.RawMessage, error) {
	timeout := time.After(g.confirmTimeout)
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, xerrors.Errorf("tx %s: %s: %w", txHash, ctx.Err(), ErrIndeterminate)
		case <-timeout:
			return nil, xerrors.Errorf("timeout waiting for transaction confirmation, tx %s: %w", txHash, ErrIndeterminate)
		case <-ticker.C:
			status, err := g.txStatus(ctx, txHash)
			if err != nil {
				logs.GetLogger().Warnf("polling tx %s: %v", txHash, err)
				continue
			}
			switch status.Status {
			case "success":
				return status.Result, nil
			case "failed":
				return nil, xerrors.Errorf("tx %s failed: %s: %w", txHash, status.Message, ErrContractCall)
			}
		}
	}
}

func (g *GatewayClient) txStatus(ctx context.Context, txHash string) (*txStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseUrl+"/api/v1/transactions/"+txHash, nil)
	if err != nil {
		return nil, err
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tx status http %d", resp.StatusCode)
	}

	var status txStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

// AccountBalance reads the native balance of an account, in stroops.
func (g *GatewayClient) AccountBalance(ctx context.Context, address string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseUrl+"/api/v1/accounts/"+address+"/balance", nil)
	if err != nil {
		return 0, err
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, xerrors.Errorf("fetching balance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, xerrors.Errorf("account %s: %w", address, ErrAbsent)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, xerrors.Errorf("balance http %d: %w", resp.StatusCode, ErrContractCall)
	}

	var body struct {
		Balance int64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.Balance, nil
}

func (g *GatewayClient) post(ctx context.Context, path string, body callRequest) (*callResponse, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseUrl+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("%s %s: %s: %w", body.Contract, body.Method, err, ErrContractCall)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, xerrors.Errorf("%s %s: %w", body.Contract, body.Method, ErrAbsent)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, xerrors.Errorf("%s %s: http %d: %s: %w", body.Contract, body.Method, resp.StatusCode, string(raw), ErrContractCall)
	}

	var decoded callResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, xerrors.Errorf("decoding gateway response: %w", err)
	}
	if decoded.Status == "fail" {
		return nil, xerrors.Errorf("%s %s: %s: %w", body.Contract, body.Method, decoded.Message, ErrContractCall)
	}
	return &decoded, nil
}

func (g *GatewayClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if g.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.accessToken)
	}
}

// invocationDigest is the canonical byte form the wallet signs for an
// invocation. The gateway recomputes and checks it before submission.
func invocationDigest(contract, method string, args []interface{}) ([]byte, error) {
	encodedArgs, err := json.Marshal(normalizeArgs(args))
	if err != nil {
		return nil, err
	}
	return []byte(contract + "|" + method + "|" + string(encodedArgs)), nil
}

func normalizeArgs(args []interface{}) []interface{} {
	if args == nil {
		return []interface{}{}
	}
	return args
}
