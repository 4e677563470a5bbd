package orders

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/oceanprotocol/squid-go/internal/models"
)

// CheckAgreementStatus confirms on-chain that an agreement exists and is
// bound to expectedConsumer. It makes retries+1 fetch attempts with a fixed
// sleep in between, returning true on the first match and false once every
// attempt is spent. Pure oracle: it never mutates state.
func CheckAgreementStatus(ctx context.Context, store AgreementFetcher, agreementID models.AgreementID, expectedConsumer common.Address, retries int, interval time.Duration, log *zap.Logger) bool {
	attempts := retries + 1
	for i := 0; i < attempts; i++ {
		agreement, err := store.Get(ctx, agreementID)
		if err == nil && strings.EqualFold(agreement.Consumer.Hex(), expectedConsumer.Hex()) {
			log.Info("agreement confirmed on-chain",
				zap.String("agreement_id", agreementID.Hex()),
				zap.Int("attempt", i+1),
			)
			return true
		}
		if err != nil {
			log.Debug("agreement not yet on-chain",
				zap.String("agreement_id", agreementID.Hex()),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(interval):
			}
		}
	}
	return false
}
