// Package royalty computes sale payouts from a token's permanent revenue
// split. The computation is pure: it reads the token, never mutates it.
package royalty

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/galleryprotocol/nft-ledger/internal/domain"
)

var basisPointsTotal = uint256.NewInt(uint64(domain.BasisPointsTotal))

// share is the floored basis-point fraction of the sale amount.
func share(bps domain.BasisPoints, saleAmount *uint256.Int) *uint256.Int {
	out := new(uint256.Int).Mul(saleAmount, uint256.NewInt(uint64(bps)))
	return out.Div(out, basisPointsTotal)
}

// ComputePayout splits saleAmount between the token's royalty recipients and
// its current owner. Each non-owner recipient receives its floored basis-point
// share; the owner receives the share of the remaining basis points, computed
// last. A royalty entry naming the owner is skipped, its share folded into the
// owner's residual. maxRecipients bounds the royalty entries the caller is
// willing to pay out; a negative value means unbounded.
func ComputePayout(token domain.Token, saleAmount *uint256.Int, maxRecipients int) (map[domain.AccountID]*uint256.Int, error) {
	if maxRecipients >= 0 && len(token.Royalty) > maxRecipients {
		return nil, fmt.Errorf("%w: %d royalty entries, caller accepts %d", domain.ErrTooManyRecipients, len(token.Royalty), maxRecipients)
	}

	payout := make(map[domain.AccountID]*uint256.Int, len(token.Royalty)+1)

	var total domain.BasisPoints
	for recipient, bps := range token.Royalty {
		if recipient == token.OwnerID {
			continue
		}
		payout[recipient] = share(bps, saleAmount)
		total += bps
	}
	payout[token.OwnerID] = share(domain.BasisPointsTotal-total, saleAmount)

	return payout, nil
}
