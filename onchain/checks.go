package onchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	nftagg "github.com/nftagg/router-sdk-go"
)

// EnsureNFTOwnershipAndApproval verifies that maker still holds the offered
// asset and has approved operator (the protocol's resolved transfer delegate)
// to move it. amount is the required ERC-1155 quantity; ignored for ERC-721.
func (r *Reader) EnsureNFTOwnershipAndApproval(
	ctx context.Context,
	kind nftagg.TokenKind,
	token, maker, operator common.Address,
	tokenID, amount *big.Int,
) error {
	switch kind {
	case nftagg.TokenKindERC721:
		owner, err := r.ERC721OwnerOf(ctx, token, tokenID)
		if err != nil {
			return fmt.Errorf("failed to read owner: %w", err)
		}
		if owner != maker {
			return nftagg.ErrNoBalance
		}
		approvedForAll, err := r.IsApprovedForAll(ctx, token, maker, operator)
		if err != nil {
			return fmt.Errorf("failed to read operator approval: %w", err)
		}
		if approvedForAll {
			return nil
		}
		approved, err := r.ERC721GetApproved(ctx, token, tokenID)
		if err != nil {
			return fmt.Errorf("failed to read token approval: %w", err)
		}
		if approved != operator {
			return nftagg.ErrNoApproval
		}
		return nil

	case nftagg.TokenKindERC1155:
		required := amount
		if required == nil {
			required = big.NewInt(1)
		}
		balance, err := r.ERC1155BalanceOf(ctx, token, maker, tokenID)
		if err != nil {
			return fmt.Errorf("failed to read balance: %w", err)
		}
		if balance.Cmp(required) < 0 {
			return nftagg.ErrNoBalance
		}
		approvedForAll, err := r.IsApprovedForAll(ctx, token, maker, operator)
		if err != nil {
			return fmt.Errorf("failed to read operator approval: %w", err)
		}
		if !approvedForAll {
			return nftagg.ErrNoApproval
		}
		return nil

	default:
		return fmt.Errorf("%w: token kind %q", nftagg.ErrInvalidParams, kind)
	}
}

// EnsureERC20BalanceAndAllowance verifies that owner holds at least amount of
// the payment token and has granted spender a matching allowance.
func (r *Reader) EnsureERC20BalanceAndAllowance(
	ctx context.Context,
	token, owner, spender common.Address,
	amount *big.Int,
) error {
	balance, err := r.ERC20BalanceOf(ctx, token, owner)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}
	if balance.Cmp(amount) < 0 {
		return nftagg.ErrNoBalance
	}
	allowance, err := r.ERC20Allowance(ctx, token, owner, spender)
	if err != nil {
		return fmt.Errorf("failed to read allowance: %w", err)
	}
	if allowance.Cmp(amount) < 0 {
		return nftagg.ErrNoApproval
	}
	return nil
}
