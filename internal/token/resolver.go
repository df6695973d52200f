// Package token resolves ERC20 display metadata and scales raw amounts.
package token

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"approvalScope/internal/model"
)

// ContractCaller performs a read-only contract call.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Fallback is the metadata substituted when a token's name or decimals
// call fails. Callers can override it per deployment instead of relying
// on implicit global defaults.
type Fallback struct {
	Name     string
	Decimals uint8
}

// DefaultFallback matches the most common ERC20 precision.
var DefaultFallback = Fallback{Name: "Unknown Token", Decimals: 18}

// Resolver resolves token metadata once per unique address and caches it
// for the run. Resolution is best-effort: a broken or non-standard token
// yields the fallback metadata, never an error, so one bad contract can
// not abort a whole batch.
type Resolver struct {
	caller   ContractCaller
	fallback Fallback
	logger   *zap.Logger

	mu    sync.RWMutex
	cache map[common.Address]model.TokenMeta
}

// NewResolver builds a resolver over the given chain-access collaborator.
func NewResolver(caller ContractCaller, fallback Fallback, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		caller:   caller,
		fallback: fallback,
		logger:   logger,
		cache:    make(map[common.Address]model.TokenMeta),
	}
}

// Resolve returns the metadata for a token contract, from cache when the
// address was already seen in this run.
func (r *Resolver) Resolve(ctx context.Context, addr common.Address) model.TokenMeta {
	r.mu.RLock()
	meta, ok := r.cache[addr]
	r.mu.RUnlock()
	if ok {
		return meta
	}

	meta = r.fetch(ctx, addr)

	r.mu.Lock()
	r.cache[addr] = meta
	r.mu.Unlock()

	return meta
}

// ResolveAll warms the cache for a set of unique addresses. Resolutions
// are independent read-only calls and run concurrently, bounded by limit
// to respect RPC provider rate limits. The only error returned is context
// cancellation; per-token failures resolve to the fallback.
func (r *Resolver) ResolveAll(ctx context.Context, addrs []common.Address, limit int) error {
	if limit <= 0 {
		limit = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, addr := range addrs {
		addr := addr
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.Resolve(ctx, addr)
			return nil
		})
	}

	return g.Wait()
}

func (r *Resolver) fetch(ctx context.Context, addr common.Address) model.TokenMeta {
	name, decimals, err := r.readNameAndDecimals(ctx, addr)
	if err != nil {
		r.logger.Warn("token metadata unavailable, using fallback",
			zap.String("token", addr.Hex()),
			zap.Error(err),
		)
		return model.TokenMeta{
			Address:  addr.Hex(),
			Name:     r.fallback.Name,
			Decimals: r.fallback.Decimals,
			Fallback: true,
		}
	}

	return model.TokenMeta{
		Address:  addr.Hex(),
		Name:     name,
		Decimals: decimals,
	}
}

func (r *Resolver) readNameAndDecimals(ctx context.Context, addr common.Address) (string, uint8, error) {
	if r.caller == nil {
		return "", 0, fmt.Errorf("contract caller is nil")
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return "", 0, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return "", 0, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := r.call(ctx, addr, stringABI, "decimals")
	if err != nil {
		return "", 0, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return "", 0, fmt.Errorf("decimals: %w", err)
	}

	if values, err := r.call(ctx, addr, stringABI, "name"); err == nil {
		if name, ok := values[0].(string); ok {
			return name, decimals, nil
		}
	}
	values, err = r.call(ctx, addr, bytes32ABI, "name")
	if err != nil {
		return "", 0, err
	}
	name, ok := bytes32ToString(values[0])
	if !ok {
		return "", 0, fmt.Errorf("name: unexpected return type %T", values[0])
	}
	return name, decimals, nil
}

func (r *Resolver) call(ctx context.Context, addr common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &addr, Data: data}
	resp, err := r.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(values))
	}
	return values, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("decimals out of range: %s", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
