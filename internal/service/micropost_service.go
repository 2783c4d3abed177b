package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"go-micropost/internal/event"
	"go-micropost/internal/model"
	"go-micropost/internal/storage"
	"go-micropost/internal/util"
	"go-micropost/pkg/apierror"
)

const (
	contentMaxChars = 280
	postImageMaxDim = 1024
)

type micropostStore interface {
	Create(ctx context.Context, post model.Micropost) (model.Micropost, error)
	FindByID(ctx context.Context, viewerID int64, id int64) (model.Micropost, error)
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, viewerID int64, userID int64, limit int, offset int) ([]model.Micropost, int, error)
	Feed(ctx context.Context, viewerID int64, limit int, offset int) ([]model.Micropost, int, error)
}

type likeStore interface {
	Create(ctx context.Context, userID int64, micropostID int64) error
	Delete(ctx context.Context, userID int64, micropostID int64) error
}

type commentStore interface {
	Create(ctx context.Context, c model.Comment) (model.Comment, error)
	FindByID(ctx context.Context, id int64) (model.Comment, error)
	ListByMicropost(ctx context.Context, micropostID int64, limit int, offset int) ([]model.Comment, int, error)
	Delete(ctx context.Context, id int64) error
}

type MicropostService struct {
	posts    micropostStore
	likes    likeStore
	comments commentStore
	media    *storage.MediaStore
	bus      event.Bus
}

func NewMicropostService(posts micropostStore, likes likeStore, comments commentStore, media *storage.MediaStore, bus event.Bus) *MicropostService {
	return &MicropostService{posts: posts, likes: likes, comments: comments, media: media, bus: bus}
}

// Create stores a new post for the principal; image is optional and, if
// present, is normalized to a bounded JPEG before hitting the store.
func (s *MicropostService) Create(ctx context.Context, principal *model.Claims, content string, image io.Reader) (model.Micropost, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Micropost{}, apierror.BadRequest("content is required", "content")
	}
	if utf8.RuneCountInString(content) > contentMaxChars {
		return model.Micropost{}, apierror.BadRequest(
			fmt.Sprintf("content exceeds %d characters", contentMaxChars), "content")
	}

	imagePath := ""
	if image != nil {
		path, err := s.storeImage(image)
		if err != nil {
			return model.Micropost{}, err
		}
		imagePath = path
	}

	post, err := s.posts.Create(ctx, model.Micropost{
		UserID:    principal.UserID,
		UserName:  principal.Name,
		Content:   content,
		ImagePath: imagePath,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if imagePath != "" {
			_ = s.media.Remove(imagePath)
		}
		return model.Micropost{}, err
	}

	s.bus.Publish(event.New(event.TypePostCreated, principal.UserID, post))
	return post, nil
}

func (s *MicropostService) Get(ctx context.Context, viewerID int64, id int64) (model.Micropost, error) {
	return s.posts.FindByID(ctx, viewerID, id)
}

// Delete removes a post. Only the author or an admin may delete.
func (s *MicropostService) Delete(ctx context.Context, principal *model.Claims, id int64) error {
	post, err := s.posts.FindByID(ctx, principal.UserID, id)
	if err != nil {
		return err
	}

	if post.UserID != principal.UserID && !principal.IsAdmin() {
		return apierror.Forbidden("only the author may delete this post")
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	if post.ImagePath != "" {
		_ = s.media.Remove(post.ImagePath)
	}

	s.bus.Publish(event.New(event.TypePostDeleted, principal.UserID, map[string]any{"id": id}))
	return nil
}

func (s *MicropostService) ListByUser(ctx context.Context, viewerID int64, userID int64, limit int, offset int) ([]model.Micropost, int, error) {
	return s.posts.ListByUser(ctx, viewerID, userID, limit, offset)
}

func (s *MicropostService) Feed(ctx context.Context, viewerID int64, limit int, offset int) ([]model.Micropost, int, error) {
	return s.posts.Feed(ctx, viewerID, limit, offset)
}

func (s *MicropostService) Like(ctx context.Context, principal *model.Claims, id int64) error {
	if _, err := s.posts.FindByID(ctx, principal.UserID, id); err != nil {
		return err
	}

	err := s.likes.Create(ctx, principal.UserID, id)
	if errors.Is(err, model.ErrAlreadyLiked) {
		return apierror.Conflict("micropost already liked", "")
	}
	if err != nil {
		return err
	}

	s.bus.Publish(event.New(event.TypePostLiked, principal.UserID, map[string]any{"id": id}))
	return nil
}

func (s *MicropostService) Unlike(ctx context.Context, principal *model.Claims, id int64) error {
	err := s.likes.Delete(ctx, principal.UserID, id)
	if errors.Is(err, model.ErrNotLiked) {
		return apierror.NotFound("micropost not liked", "")
	}
	if err != nil {
		return err
	}

	s.bus.Publish(event.New(event.TypePostUnliked, principal.UserID, map[string]any{"id": id}))
	return nil
}

func (s *MicropostService) AddComment(ctx context.Context, principal *model.Claims, micropostID int64, content string) (model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Comment{}, apierror.BadRequest("content is required", "content")
	}
	if utf8.RuneCountInString(content) > contentMaxChars {
		return model.Comment{}, apierror.BadRequest(
			fmt.Sprintf("content exceeds %d characters", contentMaxChars), "content")
	}

	if _, err := s.posts.FindByID(ctx, principal.UserID, micropostID); err != nil {
		return model.Comment{}, err
	}

	comment, err := s.comments.Create(ctx, model.Comment{
		MicropostID: micropostID,
		UserID:      principal.UserID,
		UserName:    principal.Name,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return model.Comment{}, err
	}

	s.bus.Publish(event.New(event.TypeCommentAdded, principal.UserID, comment))
	return comment, nil
}

func (s *MicropostService) ListComments(ctx context.Context, micropostID int64, limit int, offset int) ([]model.Comment, int, error) {
	if _, err := s.posts.FindByID(ctx, 0, micropostID); err != nil {
		return nil, 0, err
	}
	return s.comments.ListByMicropost(ctx, micropostID, limit, offset)
}

// DeleteComment allows the comment author, the post author or an admin.
func (s *MicropostService) DeleteComment(ctx context.Context, principal *model.Claims, commentID int64) error {
	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return err
	}

	if comment.UserID != principal.UserID && !principal.IsAdmin() {
		post, err := s.posts.FindByID(ctx, principal.UserID, comment.MicropostID)
		if err != nil {
			return err
		}
		if post.UserID != principal.UserID {
			return apierror.Forbidden("not allowed to delete this comment")
		}
	}

	return s.comments.Delete(ctx, commentID)
}

// Image opens a post's attached image for streaming.
func (s *MicropostService) Image(ctx context.Context, viewerID int64, id int64) (*os.File, os.FileInfo, error) {
	post, err := s.posts.FindByID(ctx, viewerID, id)
	if err != nil {
		return nil, nil, err
	}
	if post.ImagePath == "" {
		return nil, nil, apierror.NotFound("micropost has no image", "")
	}

	file, info, err := s.media.Open(post.ImagePath)
	if os.IsNotExist(err) {
		return nil, nil, apierror.NotFound("image file missing", post.ImagePath)
	}
	if err != nil {
		return nil, nil, err
	}
	return file, info, nil
}

func (s *MicropostService) storeImage(upload io.Reader) (string, error) {
	buffered := bufio.NewReader(upload)
	mimeType, err := util.SniffMIME(buffered)
	if err != nil {
		return "", err
	}
	if !util.IsImageMIME(mimeType) {
		return "", apierror.New("UNSUPPORTED_TYPE", "attachment must be an image", mimeType, http.StatusUnsupportedMediaType)
	}

	scaled, err := util.DecodeAndScaleJPEG(buffered, postImageMaxDim)
	if err != nil {
		return "", apierror.New("UNSUPPORTED_TYPE", "cannot decode image", err.Error(), http.StatusUnsupportedMediaType)
	}

	path := fmt.Sprintf("posts/%s.jpg", uuid.NewString())
	if err := s.media.Save(path, scaled); err != nil {
		return "", err
	}
	return path, nil
}
