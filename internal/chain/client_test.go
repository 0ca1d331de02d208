package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"celokudos/internal/chain/retry"
	"celokudos/internal/contract"
	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKudos = common.HexToAddress("0x8f15a99c6D6Ac062782fE7489FE57Ecd2e236042")
	testToken = common.HexToAddress("0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1")
	testChain = big.NewInt(44787)
)

// fakeBackend answers contract calls from canned return values keyed by
// method name and records sent transactions
type fakeBackend struct {
	mu sync.Mutex

	abis     map[common.Address]abi.ABI
	returns  map[string][]interface{}
	callErrs []error
	calls    []string
	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	notFound int
	nonce    uint64
	blockNum uint64
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	kudosABI, err := contract.KudosABI()
	require.NoError(t, err)
	tokenABI, err := contract.TokenABI()
	require.NoError(t, err)

	return &fakeBackend{
		abis: map[common.Address]abi.ABI{
			testKudos: kudosABI,
			testToken: tokenABI,
		},
		returns:  make(map[string][]interface{}),
		receipts: make(map[common.Hash]*types.Receipt),
		blockNum: 100,
	}
}

func (f *fakeBackend) method(to *common.Address, data []byte) (abi.Method, error) {
	if to == nil || len(data) < 4 {
		return abi.Method{}, errors.New("bad call")
	}
	parsed, ok := f.abis[*to]
	if !ok {
		return abi.Method{}, fmt.Errorf("no contract at %s", to.Hex())
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil {
		return abi.Method{}, err
	}
	return *method, nil
}

func (f *fakeBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.method(call.To, call.Data)
	if err != nil {
		return nil, err
	}
	f.calls = append(f.calls, m.Name)

	if len(f.callErrs) > 0 {
		err := f.callErrs[0]
		f.callErrs = f.callErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	values, ok := f.returns[m.Name]
	if !ok {
		return nil, fmt.Errorf("execution reverted: no canned return for %s", m.Name)
	}
	return m.Outputs.Pack(values...)
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: new(big.Int).SetUint64(f.blockNum)}, nil
}

func (f *fakeBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(5_000_000_000), nil
}

func (f *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	f.nonce++
	return nil
}

func (f *fakeBackend) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (f *fakeBackend) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("subscriptions not supported")
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notFound > 0 {
		f.notFound--
		return nil, ethereum.NotFound
	}
	receipt, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return testChain, nil
}

func (f *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	return f.blockNum, nil
}

func newTestClient(t *testing.T, backend *fakeBackend, rc retry.Config) *Client {
	t.Helper()
	client, err := NewClient(backend, Config{
		KudosAddress: testKudos,
		TokenAddress: testToken,
		PollInterval: 5 * time.Millisecond,
		Retry:        rc,
	})
	require.NoError(t, err)
	return client
}

func newSigningSession(t *testing.T) *wallet.Session {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet.NewSession(key, testChain, "env", true)
}

func TestClient_KudosByID(t *testing.T) {
	backend := newFakeBackend(t)
	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")
	recipient := common.HexToAddress("0x2222222222222222222222222222222222222222")
	backend.returns[contract.MethodGetKudosByID] = []interface{}{
		kudosTuple{
			Sender:    sender,
			Recipient: recipient,
			Amount:    big.NewInt(5e18),
			Message:   "great work",
			Timestamp: big.NewInt(1_700_000_000),
			IsPublic:  true,
		},
	}

	client := newTestClient(t, backend, retry.Config{})
	record, err := client.KudosByID(context.Background(), big.NewInt(7))
	require.NoError(t, err)

	assert.Equal(t, int64(7), record.ID.Int64())
	assert.Equal(t, sender, record.Sender)
	assert.Equal(t, recipient, record.Recipient)
	assert.Equal(t, int64(5e18), record.Amount.Int64())
	assert.Equal(t, "great work", record.Message)
	assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), record.Timestamp)
	assert.True(t, record.IsPublic)
}

func TestClient_KudosByID_TimestampOutOfRange(t *testing.T) {
	backend := newFakeBackend(t)
	backend.returns[contract.MethodGetKudosByID] = []interface{}{
		kudosTuple{
			Sender:    common.HexToAddress("0x01"),
			Recipient: common.HexToAddress("0x02"),
			Amount:    big.NewInt(1),
			Message:   "hi",
			Timestamp: new(big.Int).Lsh(big.NewInt(1), 64),
		},
	}

	client := newTestClient(t, backend, retry.Config{})
	_, err := client.KudosByID(context.Background(), big.NewInt(1))
	assert.ErrorContains(t, err, "out of range timestamp")
}

func TestClient_IDsAndStats(t *testing.T) {
	backend := newFakeBackend(t)
	backend.returns[contract.MethodGetPublicKudos] = []interface{}{[]*big.Int{big.NewInt(3), big.NewInt(1)}}
	backend.returns[contract.MethodGetUserStats] = []interface{}{big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4)}
	backend.returns[contract.MethodGetPlatformStats] = []interface{}{big.NewInt(10), big.NewInt(20), big.NewInt(30)}
	backend.returns[contract.MethodGetTotalKudos] = []interface{}{big.NewInt(10)}
	backend.returns[contract.MethodOwner] = []interface{}{testKudos}

	client := newTestClient(t, backend, retry.Config{})
	ctx := context.Background()

	ids, err := client.PublicKudos(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, int64(3), ids[0].Int64())

	user, err := client.UserStats(ctx, testKudos)
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ReceivedCount.Int64())
	assert.Equal(t, int64(4), user.TotalSent.Int64())

	platform, err := client.PlatformStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(30), platform.UserCount.Int64())

	total, err := client.TotalKudos(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total.Int64())

	owner, err := client.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, testKudos, owner)
}

func TestClient_ReadRetriesTransientErrors(t *testing.T) {
	backend := newFakeBackend(t)
	backend.returns[contract.MethodAllowance] = []interface{}{big.NewInt(42)}
	backend.callErrs = []error{errors.New("dial tcp: connection refused"), nil}

	client := newTestClient(t, backend, retry.Config{
		Enabled:      true,
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	})

	allowance, err := client.Allowance(context.Background(), testKudos, testToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), allowance.Int64())
	assert.Equal(t, []string{"allowance", "allowance"}, backend.calls)
}

func TestClient_ReadRevertIsNotRetried(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, retry.Config{
		Enabled:      true,
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	})

	_, err := client.TotalKudos(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReverted)
	assert.Len(t, backend.calls, 1)
}

func TestClient_TransportErrorIsNotRevert(t *testing.T) {
	backend := newFakeBackend(t)
	backend.callErrs = []error{errors.New("dial tcp 127.0.0.1:8545: connection refused")}
	client := newTestClient(t, backend, retry.Config{})

	_, err := client.TotalKudos(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrReverted)
}

func TestClient_ApproveAndSend(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, retry.Config{})
	session := newSigningSession(t)
	ctx := context.Background()

	amount := new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))
	recipient := common.HexToAddress("0x2222222222222222222222222222222222222222")

	approveHash, err := client.Approve(ctx, session, testKudos, amount)
	require.NoError(t, err)
	sendHash, err := client.SendKudos(ctx, session, recipient, amount, "great work", true)
	require.NoError(t, err)

	require.Len(t, backend.sent, 2)
	assert.Equal(t, approveHash, backend.sent[0].Hash())
	assert.Equal(t, sendHash, backend.sent[1].Hash())

	// approve goes to the token, sendKudos to the kudos contract
	assert.Equal(t, testToken, *backend.sent[0].To())
	assert.Equal(t, testKudos, *backend.sent[1].To())
	assert.Equal(t, uint64(0), backend.sent[0].Nonce())
	assert.Equal(t, uint64(1), backend.sent[1].Nonce())

	tokenABI, err := contract.TokenABI()
	require.NoError(t, err)
	args, err := tokenABI.Methods[contract.MethodApprove].Inputs.Unpack(backend.sent[0].Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, testKudos, args[0])
	assert.Equal(t, 0, amount.Cmp(args[1].(*big.Int)))

	signer := types.LatestSignerForChainID(testChain)
	from, err := types.Sender(signer, backend.sent[1])
	require.NoError(t, err)
	assert.Equal(t, session.Address(), from)
}

func TestClient_WriteNeedsSigner(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, retry.Config{})

	_, err := client.Approve(context.Background(), wallet.NewWatchSession(testKudos), testKudos, big.NewInt(1))
	assert.ErrorIs(t, err, wallet.ErrNotConnected)
	assert.Empty(t, backend.sent)
}

func TestClient_WaitMined(t *testing.T) {
	backend := newFakeBackend(t)
	hash := common.HexToHash("0xabc")
	backend.receipts[hash] = &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(101)}
	backend.notFound = 2

	client := newTestClient(t, backend, retry.Config{})
	receipt, err := client.WaitMined(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, int64(101), receipt.BlockNumber.Int64())
}

func TestClient_WaitMinedHonoursContext(t *testing.T) {
	backend := newFakeBackend(t)
	client := newTestClient(t, backend, retry.Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.WaitMined(ctx, common.HexToHash("0xdead"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
