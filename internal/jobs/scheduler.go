package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"clipcast/api/internal/repository"
	"clipcast/api/internal/service"
)

const dispatchBatchSize = 100

// Scheduler runs the periodic maintenance work: handing due posts to
// the publisher and purging dead refresh tokens.
type Scheduler struct {
	cron   *cron.Cron
	posts  *service.PostService
	tokens *repository.RefreshTokenRepository
	log    zerolog.Logger
}

func NewScheduler(posts *service.PostService, tokens *repository.RefreshTokenRepository, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		posts:  posts,
		tokens: tokens,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 * * * * *", s.dispatchDuePosts); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.purgeTokens); err != nil { // daily, off-peak
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits briefly for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) dispatchDuePosts() {
	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Second)
	defer cancel()

	if err := s.posts.DispatchDue(ctx, dispatchBatchSize); err != nil {
		s.log.Error().Err(err).Msg("dispatch due posts failed")
	}
}

func (s *Scheduler) purgeTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.tokens.DeleteExpired(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		s.log.Error().Err(err).Msg("token purge failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Msg("purged refresh tokens")
	}
}
