package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"clipcast/api/internal/config"
	"clipcast/api/internal/ids"
	"clipcast/api/internal/models"
	"clipcast/api/internal/publisher"
	"clipcast/api/internal/repository"
	"clipcast/api/internal/storage"
)

var supportedPlatforms = map[string]struct{}{
	"tiktok":    {},
	"instagram": {},
	"youtube":   {},
	"facebook":  {},
	"linkedin":  {},
	"x":         {},
}

var (
	ErrUnknownPlatform   = errors.New("unknown platform")
	ErrScheduleInPast    = errors.New("scheduled time must be in the future")
	ErrPostNotCancelable = errors.New("post already dispatched")
)

type PostService struct {
	posts     *repository.PostRepository
	videos    *repository.VideoRepository
	store     *storage.ObjectStore
	publisher *publisher.Client
	queue     *redis.Client
	cfg       *config.AppConfig
	log       zerolog.Logger
}

func NewPostService(posts *repository.PostRepository, videos *repository.VideoRepository, store *storage.ObjectStore, pub *publisher.Client, queue *redis.Client, cfg *config.AppConfig, log zerolog.Logger) *PostService {
	return &PostService{
		posts:     posts,
		videos:    videos,
		store:     store,
		publisher: pub,
		queue:     queue,
		cfg:       cfg,
		log:       log,
	}
}

type ScheduleInput struct {
	UserID      string
	VideoID     *string
	Caption     string
	Platforms   []string
	ScheduledAt time.Time
}

func (s *PostService) Schedule(ctx context.Context, input ScheduleInput) (models.Post, error) {
	if len(input.Platforms) == 0 {
		return models.Post{}, errors.New("at least one platform required")
	}
	for _, platform := range input.Platforms {
		if _, ok := supportedPlatforms[platform]; !ok {
			return models.Post{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
		}
	}
	if input.ScheduledAt.Before(time.Now()) {
		return models.Post{}, ErrScheduleInPast
	}

	if input.VideoID != nil {
		video, err := s.videos.GetByID(ctx, *input.VideoID)
		if err != nil {
			return models.Post{}, err
		}
		if video.UserID != input.UserID {
			return models.Post{}, ErrNotOwner
		}
	}

	post := models.Post{
		ID:          ids.New(),
		UserID:      input.UserID,
		VideoID:     input.VideoID,
		Caption:     input.Caption,
		Platforms:   input.Platforms,
		ScheduledAt: input.ScheduledAt.UTC(),
		Status:      models.PostStatusScheduled,
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return models.Post{}, err
	}
	return post, nil
}

func (s *PostService) ListByUser(ctx context.Context, userID string, limit int, offset int) ([]models.Post, error) {
	return s.posts.ListByUser(ctx, userID, limit, offset)
}

func (s *PostService) ListAll(ctx context.Context, limit int, offset int) ([]models.Post, error) {
	return s.posts.List(ctx, limit, offset)
}

func (s *PostService) Cancel(ctx context.Context, userID string, postID string) error {
	err := s.posts.Cancel(ctx, postID, userID)
	if errors.Is(err, repository.ErrPostNotFound) {
		// Either it does not exist or it already left the scheduled
		// state; tell the caller which. Another user's post stays a
		// not-found.
		if post, getErr := s.posts.GetByID(ctx, postID); getErr == nil && post.UserID == userID {
			return ErrPostNotCancelable
		}
		return repository.ErrPostNotFound
	}
	return err
}

// DispatchDue claims due posts and hands them to the publisher. Each
// claim is a conditional status flip, so overlapping scheduler ticks
// never double-publish.
func (s *PostService) DispatchDue(ctx context.Context, limit int) error {
	due, err := s.posts.ListDue(ctx, time.Now(), limit)
	if err != nil {
		return err
	}

	for _, post := range due {
		claimed, err := s.posts.MarkDispatched(ctx, post.ID)
		if err != nil {
			s.log.Error().Err(err).Str("post_id", post.ID).Msg("claim post failed")
			continue
		}
		if !claimed {
			continue
		}
		s.publish(ctx, post)
	}
	return nil
}

func (s *PostService) publish(ctx context.Context, post models.Post) {
	videoURL := ""
	if post.VideoID != nil {
		if video, err := s.videos.GetByID(ctx, *post.VideoID); err == nil {
			videoURL = s.store.PublicURL(video.ObjectKey)
		}
	}

	handleID, err := s.publisher.EnsureHandle(ctx, post.UserID, post.UserID)
	if err != nil {
		s.failPost(ctx, post.ID, fmt.Sprintf("handle setup: %v", err))
		return
	}

	result, err := s.publisher.CreatePost(ctx, publisher.CreatePostInput{
		HandleID:    handleID,
		Caption:     post.Caption,
		Platforms:   post.Platforms,
		VideoURL:    videoURL,
		ScheduledAt: post.ScheduledAt,
	})
	if err != nil {
		s.failPost(ctx, post.ID, err.Error())
		return
	}

	if err := s.posts.MarkPublished(ctx, post.ID, result.ID); err != nil {
		s.log.Error().Err(err).Str("post_id", post.ID).Msg("mark published failed")
	}

	if err := s.announcePublished(ctx, post, result.ID); err != nil {
		s.log.Warn().Err(err).Str("post_id", post.ID).Msg("publish event enqueue failed")
	}
}

// announcePublished emits a stream event for downstream consumers
// such as the analytics worker.
func (s *PostService) announcePublished(ctx context.Context, post models.Post, externalID string) error {
	if s.queue == nil {
		return nil
	}

	_, err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: "posts:published",
		Values: map[string]any{
			"postId":     post.ID,
			"userId":     post.UserID,
			"externalId": externalID,
		},
	}).Result()
	return err
}

func (s *PostService) failPost(ctx context.Context, postID string, reason string) {
	if err := s.posts.MarkFailed(ctx, postID, reason); err != nil {
		s.log.Error().Err(err).Str("post_id", postID).Msg("mark failed failed")
	}
	s.log.Warn().Str("post_id", postID).Str("reason", reason).Msg("post publication failed")
}
