package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"clipcast/api/internal/ai"
	"clipcast/api/internal/config"
	"clipcast/api/internal/ids"
	"clipcast/api/internal/models"
	"clipcast/api/internal/repository"
	"clipcast/api/internal/storage"
)

const maxVideoSizeBytes = 512 << 20

var videoContentTypes = map[string]string{
	"mp4":  "video/mp4",
	"m4v":  "video/x-m4v",
	"mov":  "video/quicktime",
	"webm": "video/webm",
}

var (
	ErrUnsupportedFormat = errors.New("unsupported video format")
	ErrVideoTooLarge     = errors.New("video exceeds size limit")
	ErrNotOwner          = errors.New("video belongs to another user")
)

type VideoService struct {
	videos   *repository.VideoRepository
	store    *storage.ObjectStore
	captions *ai.Client
	queue    *redis.Client
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewVideoService(videos *repository.VideoRepository, store *storage.ObjectStore, captions *ai.Client, queue *redis.Client, cfg *config.AppConfig, log zerolog.Logger) *VideoService {
	return &VideoService{
		videos:   videos,
		store:    store,
		captions: captions,
		queue:    queue,
		cfg:      cfg,
		log:      log,
	}
}

type UploadInput struct {
	UserID string
	Title  string
	File   multipart.File
	Header *multipart.FileHeader
}

type UploadResult struct {
	Video models.Video
	URL   string
}

func (s *VideoService) Upload(ctx context.Context, input UploadInput) (UploadResult, error) {
	if input.File == nil || input.Header == nil {
		return UploadResult{}, errors.New("invalid file payload")
	}
	if input.Header.Size > maxVideoSizeBytes {
		return UploadResult{}, ErrVideoTooLarge
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(input.Header.Filename)), ".")
	contentType, ok := videoContentTypes[ext]
	if !ok {
		return UploadResult{}, ErrUnsupportedFormat
	}

	videoID := ids.New()
	objectKey := s.buildObjectKey(videoID, ext)

	size, err := s.store.PutVideo(ctx, objectKey, input.File, input.Header.Size, contentType)
	if err != nil {
		return UploadResult{}, err
	}

	title := input.Title
	if title == "" {
		title = strings.TrimSuffix(input.Header.Filename, path.Ext(input.Header.Filename))
	}

	video := models.Video{
		ID:        videoID,
		UserID:    input.UserID,
		Title:     title,
		Bucket:    s.store.VideosBucket(),
		ObjectKey: objectKey,
		Format:    ext,
		SizeBytes: size,
		Status:    models.VideoStatusUploaded,
	}

	if err := s.videos.Create(ctx, video); err != nil {
		return UploadResult{}, fmt.Errorf("save metadata: %w", err)
	}

	if err := s.enqueueIngest(ctx, video); err != nil {
		s.log.Warn().Err(err).Str("video_id", video.ID).Msg("enqueue ingest failed")
	}

	return UploadResult{
		Video: video,
		URL:   s.store.PublicURL(objectKey),
	}, nil
}

func (s *VideoService) Get(ctx context.Context, userID string, videoID string) (models.Video, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return models.Video{}, err
	}
	if video.UserID != userID {
		return models.Video{}, ErrNotOwner
	}
	return video, nil
}

func (s *VideoService) ListByUser(ctx context.Context, userID string, limit int, offset int) ([]models.Video, error) {
	return s.videos.ListByUser(ctx, userID, limit, offset)
}

func (s *VideoService) ListAll(ctx context.Context, limit int, offset int) ([]models.Video, error) {
	return s.videos.List(ctx, limit, offset)
}

// AdminDelete removes any user's video, for the back-office media
// library.
func (s *VideoService) AdminDelete(ctx context.Context, adminID string, videoID string) error {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return err
	}

	if err := s.videos.Delete(ctx, videoID); err != nil {
		return err
	}
	if err := s.store.RemoveVideo(ctx, video.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("video_id", videoID).Str("admin_id", adminID).Msg("object cleanup failed")
	}
	return nil
}

func (s *VideoService) Delete(ctx context.Context, userID string, videoID string) error {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return err
	}
	if video.UserID != userID {
		return ErrNotOwner
	}

	if err := s.videos.Delete(ctx, videoID); err != nil {
		return err
	}
	if err := s.store.RemoveVideo(ctx, video.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("video_id", videoID).Msg("object cleanup failed")
	}
	return nil
}

// GenerateCaption asks the AI provider for candidates and stores the
// first one on the video.
func (s *VideoService) GenerateCaption(ctx context.Context, userID string, videoID string, tone string, keywords []string) ([]string, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.UserID != userID {
		return nil, ErrNotOwner
	}

	candidates, err := s.captions.GenerateCaptions(ctx, ai.CaptionInput{
		Title:    video.Title,
		Tone:     tone,
		Keywords: keywords,
	})
	if err != nil {
		return nil, fmt.Errorf("generate captions: %w", err)
	}
	if len(candidates) == 0 {
		return nil, errors.New("no caption candidates returned")
	}

	if err := s.videos.UpdateCaption(ctx, videoID, candidates[0]); err != nil {
		return nil, err
	}

	return candidates, nil
}

func (s *VideoService) buildObjectKey(videoID string, ext string) string {
	datePrefix := time.Now().UTC().Format("2006/01/02")
	return path.Join(datePrefix, fmt.Sprintf("%s.%s", videoID, ext))
}

func (s *VideoService) enqueueIngest(ctx context.Context, video models.Video) error {
	if s.queue == nil {
		return nil
	}

	_, err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: "videos:ingest",
		Values: map[string]any{
			"type":    "ingest",
			"videoId": video.ID,
			"bucket":  video.Bucket,
			"object":  video.ObjectKey,
			"format":  video.Format,
		},
	}).Result()
	return err
}
