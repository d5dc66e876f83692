package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/JuampiHernandez/raave-outfit/internal/apperror"
	"github.com/JuampiHernandez/raave-outfit/internal/handle"
	"github.com/JuampiHernandez/raave-outfit/internal/model"
)

// AvatarResolver finds a profile picture URL for a handle. It never fails.
// *avatar.Resolver satisfies it.
type AvatarResolver interface {
	Resolve(ctx context.Context, handle string) string
}

// IdentityService resolves a handle into a Profile.
type IdentityService struct {
	avatars AvatarResolver
	logger  *slog.Logger
}

// NewIdentityService wraps an avatar resolver.
func NewIdentityService(avatars AvatarResolver, logger *slog.Logger) *IdentityService {
	return &IdentityService{avatars: avatars, logger: logger}
}

// Resolve validates raw, checks the platform and resolves the avatar.
// An empty platform means model.DefaultPlatform.
func (s *IdentityService) Resolve(ctx context.Context, raw, platform string) (*model.Profile, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperror.ValidationFailed("handle", "Handle is required")
	}
	h, err := handle.Validate(raw)
	if err != nil {
		return nil, err
	}

	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" {
		platform = model.DefaultPlatform
	}
	if platform != model.DefaultPlatform {
		return nil, apperror.ValidationFailed("platform", "Only Twitter is supported")
	}

	url := s.avatars.Resolve(ctx, h)
	s.logger.Info("identity resolved",
		slog.String("handle", h),
		slog.String("image_url", url),
	)

	return &model.Profile{
		ID:          h,
		DisplayName: h,
		Name:        h,
		ImageURL:    url,
	}, nil
}
