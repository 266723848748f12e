package staking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type handler func(ctx context.Context, from common.Address, args []any) ([]any, error)

// fakeChain answers eth_call by decoding the selector against the known ABIs
// and ABI-encoding whatever the registered handler returns.
type fakeChain struct {
	mu       sync.Mutex
	handlers map[common.Address]map[string]handler
	calls    []string
	chainId  int64
}

func newFakeChain() *fakeChain {
	return &fakeChain{handlers: map[common.Address]map[string]handler{}, chainId: 32769}
}

func (f *fakeChain) on(to common.Address, method string, h handler) {
	if f.handlers[to] == nil {
		f.handlers[to] = map[string]handler{}
	}
	f.handlers[to][method] = h
}

func (f *fakeChain) returns(to common.Address, method string, vals ...any) {
	f.on(to, method, func(context.Context, common.Address, []any) ([]any, error) { return vals, nil })
}

func (f *fakeChain) reverts(to common.Address, method string) {
	f.on(to, method, func(context.Context, common.Address, []any) ([]any, error) {
		return nil, errors.New("execution reverted")
	})
}

func (f *fakeChain) called(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func findMethod(data []byte) (*abi.Method, error) {
	for _, a := range []abi.ABI{poolABI, erc20ABI} {
		for _, m := range a.Methods {
			if bytes.Equal(m.ID, data[:4]) {
				return &m, nil
			}
		}
	}
	return nil, fmt.Errorf("unknown selector %x", data[:4])
}

func (f *fakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m, err := findMethod(msg.Data)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, m.Name)
	h, ok := f.handlers[*msg.To][m.Name]
	f.mu.Unlock()

	if !ok {
		// no such function on that contract: empty return data
		return []byte{}, nil
	}

	args, err := m.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	out, err := h(ctx, msg.From, args)
	if err != nil {
		return nil, err
	}
	return m.Outputs.Pack(out...)
}

func (f *fakeChain) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(f.chainId), nil
}

func zil(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}
