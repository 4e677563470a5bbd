package orders

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/oceanprotocol/squid-go/internal/models"
)

// UnfinishedLister is the journal's recovery read surface.
type UnfinishedLister interface {
	ListUnfinished(ctx context.Context) ([]*models.Order, error)
}

// LogUnfinished reports orders a previous run left in a non-terminal state
// and returns how many there were. They are not resumed automatically; the
// operator decides whether to retry the purchase or claim the refund.
func LogUnfinished(ctx context.Context, journal UnfinishedLister, log *zap.Logger) (int, error) {
	stuck, err := journal.ListUnfinished(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unfinished orders: %w", err)
	}
	for _, o := range stuck {
		log.Warn("order left unfinished by a previous run",
			zap.String("agreement_id", o.AgreementID.Hex()),
			zap.String("status", o.Status),
			zap.String("did", o.DID),
		)
	}
	return len(stuck), nil
}
