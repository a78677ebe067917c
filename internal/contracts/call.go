package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/pkg/errors"
)

func call(ctx context.Context, c *bind.BoundContract, method string, args ...any) ([]any, error) {
	var out []any
	if err := c.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, errors.Wrapf(err, "call %s", method)
	}
	return out, nil
}

func callBig(ctx context.Context, c *bind.BoundContract, method string, args ...any) (*big.Int, error) {
	out, err := call(ctx, c, method, args...)
	if err != nil {
		return nil, err
	}
	return bigAt(out, 0, method)
}

func bigAt(out []any, i int, method string) (*big.Int, error) {
	if len(out) <= i {
		return nil, errors.Errorf("%s: expected at least %d outputs, got %d", method, i+1, len(out))
	}
	v, ok := out[i].(*big.Int)
	if !ok {
		return nil, errors.Errorf("%s: output %d is %T, not *big.Int", method, i, out[i])
	}
	return v, nil
}
