package cron

import (
	"context"
	"fmt"

	"github.com/openmarket/marketplace-backend/pkg/logger"
)

// auctionCloser closes every auction past its deadline and reports how many
// it closed.
type auctionCloser interface {
	CloseExpired(ctx context.Context) (int, error)
}

// AuctionSweepJob closes overdue auctions that lost their in-process timer,
// typically after a restart.
type AuctionSweepJob struct {
	auctions auctionCloser
	logg     *logger.Logger
}

// NewAuctionSweepJob builds the sweep job.
func NewAuctionSweepJob(auctions auctionCloser, logg *logger.Logger) (*AuctionSweepJob, error) {
	if auctions == nil {
		return nil, fmt.Errorf("auction service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &AuctionSweepJob{auctions: auctions, logg: logg}, nil
}

// Name implements Job.
func (j *AuctionSweepJob) Name() string { return "auction_sweep" }

// Run implements Job.
func (j *AuctionSweepJob) Run(ctx context.Context) error {
	closed, err := j.auctions.CloseExpired(ctx)
	if closed > 0 {
		j.logg.Info(j.logg.WithField(ctx, "closed", closed), "closed overdue auctions")
	}
	if err != nil {
		return fmt.Errorf("close expired auctions: %w", err)
	}
	return nil
}
