package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"go-micropost/internal/model"
	"go-micropost/internal/storage"
	"go-micropost/internal/util"
	"go-micropost/pkg/apierror"
)

const avatarMaxDim = 256

type profileStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	UpdateName(ctx context.Context, id int64, name string) error
	UpdateAvatarPath(ctx context.Context, id int64, avatarPath string) error
}

type UserService struct {
	users profileStore
	media *storage.MediaStore
}

func NewUserService(users profileStore, media *storage.MediaStore) *UserService {
	return &UserService{users: users, media: media}
}

func (s *UserService) GetProfile(ctx context.Context, id int64) (model.Profile, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}
	return user.Profile(), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id int64, name string) (model.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Profile{}, apierror.BadRequest("name is required", "name")
	}

	if err := s.users.UpdateName(ctx, id, name); err != nil {
		return model.Profile{}, err
	}
	return s.GetProfile(ctx, id)
}

// SetAvatar decodes the upload, downscales it to a square-bounded JPEG
// and swaps it into the media store, removing the previous avatar.
func (s *UserService) SetAvatar(ctx context.Context, id int64, upload io.Reader) (model.Profile, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}

	buffered := bufio.NewReader(upload)
	mimeType, err := util.SniffMIME(buffered)
	if err != nil {
		return model.Profile{}, err
	}
	if !util.IsImageMIME(mimeType) {
		return model.Profile{}, apierror.New("UNSUPPORTED_TYPE", "avatar must be an image", mimeType, http.StatusUnsupportedMediaType)
	}

	scaled, err := util.DecodeAndScaleJPEG(buffered, avatarMaxDim)
	if err != nil {
		return model.Profile{}, apierror.New("UNSUPPORTED_TYPE", "cannot decode image", err.Error(), http.StatusUnsupportedMediaType)
	}

	avatarPath := fmt.Sprintf("avatars/%s.jpg", uuid.NewString())
	if err := s.media.Save(avatarPath, scaled); err != nil {
		return model.Profile{}, err
	}

	if err := s.users.UpdateAvatarPath(ctx, id, avatarPath); err != nil {
		_ = s.media.Remove(avatarPath)
		return model.Profile{}, err
	}

	if user.AvatarPath != "" {
		_ = s.media.Remove(user.AvatarPath)
	}

	user.AvatarPath = avatarPath
	return user.Profile(), nil
}

// Avatar opens the stored avatar image for streaming to the client.
func (s *UserService) Avatar(ctx context.Context, id int64) (*os.File, os.FileInfo, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if user.AvatarPath == "" {
		return nil, nil, apierror.NotFound("user has no avatar", "")
	}

	file, info, err := s.media.Open(user.AvatarPath)
	if os.IsNotExist(err) {
		return nil, nil, apierror.NotFound("avatar file missing", user.AvatarPath)
	}
	if err != nil {
		return nil, nil, err
	}
	return file, info, nil
}
