package services

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/Blunt0FF/Krealgram-sub001/internal/media"
	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/repositories"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/blobstore"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/logger"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/metrics"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/realtime"
)

const (
	maxCaptionLength = 2200
	maxPostMedia     = 10
)

type PostService struct {
	store    *repositories.Store
	pipeline *media.Pipeline
	blobs    blobstore.Store
	notifier realtime.Notifier
	now      clock
}

func NewPostService(store *repositories.Store, pipeline *media.Pipeline, blobs blobstore.Store, notifier realtime.Notifier) *PostService {
	return &PostService{store: store, pipeline: pipeline, blobs: blobs, notifier: notifier, now: systemClock}
}

// Create stores the uploads and then the post. Blobs already stored are
// removed again if the post cannot be saved.
func (s *PostService) Create(ctx context.Context, ownerID, caption string, uploads []media.Upload) (*models.Post, error) {
	if utf8.RuneCountInString(caption) > maxCaptionLength {
		return nil, models.NewValidationError("caption is too long")
	}
	if len(uploads) == 0 {
		return nil, models.NewValidationError("a post needs at least one photo or video")
	}
	if len(uploads) > maxPostMedia {
		return nil, models.NewValidationError(fmt.Sprintf("a post can hold at most %d files", maxPostMedia))
	}

	refs := make([]models.MediaRef, 0, len(uploads))
	for _, u := range uploads {
		u.Folder = "posts/" + ownerID
		ref, err := s.pipeline.Process(ctx, u)
		if err != nil {
			s.discard(ctx, refs)
			return nil, err
		}
		refs = append(refs, ref)
	}

	post := models.NewPost(ownerID, caption, refs)
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Posts.Create(ctx, post); err != nil {
			return err
		}
		_, err := s.store.Users.AddToSet(ctx, ownerID, models.UserPosts, post.ID)
		return err
	})
	if err != nil {
		metrics.TxAbortTotal.WithLabelValues("post_create").Inc()
		s.discard(ctx, refs)
		return nil, err
	}
	return post, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	return s.store.Posts.GetByID(ctx, id)
}

func (s *PostService) ListByOwner(ctx context.Context, ownerID string, page Page) ([]models.Post, error) {
	page = page.normalize()
	return s.store.Posts.ListByOwner(ctx, ownerID, page.skip(), int64(page.Limit))
}

// Delete removes a post owned by requesterID and everything hanging off it.
// Inside one transaction: the post, its comments and their ids in the
// authors' arrays, its like relations and the post id in every liker's
// array, and the owner's posts entry. After commit, notifications that
// reference the post are scrubbed from every inbox and the media blobs are
// deleted; failures there are logged and do not fail the call.
func (s *PostService) Delete(ctx context.Context, requesterID, postID string) error {
	var post *models.Post
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		post, err = s.store.Posts.DeleteOwned(ctx, postID, requesterID)
		if err != nil {
			return ownershipError(ctx, err, "post", postID, s.store.Posts.Exists)
		}

		comments, err := s.store.Comments.ListByPost(ctx, postID)
		if err != nil {
			return err
		}
		for _, c := range comments {
			if _, err := s.store.Users.Pull(ctx, c.AuthorID, models.UserComments, c.ID); ignoreNotFound(err) != nil {
				return err
			}
		}
		if _, err := s.store.Comments.DeleteByPost(ctx, postID); err != nil {
			return err
		}

		if _, err := s.store.Relations.DeleteByObject(ctx, models.RelationLike, postID); err != nil {
			return err
		}
		if _, err := s.store.Users.PullFromAll(ctx, models.UserLikes, postID); err != nil {
			return err
		}

		_, err = s.store.Users.Pull(ctx, post.OwnerID, models.UserPosts, postID)
		return ignoreNotFound(err)
	})
	if err != nil {
		metrics.TxAbortTotal.WithLabelValues("post_delete").Inc()
		return err
	}

	s.afterDelete(ctx, post)
	return nil
}

func (s *PostService) afterDelete(ctx context.Context, post *models.Post) {
	bg := context.WithoutCancel(ctx)
	log := logger.Ctx(ctx).With().Str(logger.FieldPostID, post.ID).Logger()

	scrubbed, err := s.store.Notifications.PullByPost(bg, post.ID)
	bestEffort(ctx, "notification_scatter", err)
	if err == nil {
		log.Debug().Int64("inboxes", scrubbed).Msg("scrubbed notifications of deleted post")
	}

	s.discard(ctx, post.Media)
	s.notifier.Notify(ctx, post.OwnerID, realtime.EventPostDeleted, map[string]string{"post_id": post.ID})
}

// discard deletes stored blobs, logging failures.
func (s *PostService) discard(ctx context.Context, refs []models.MediaRef) {
	bg := context.WithoutCancel(ctx)
	for _, ref := range refs {
		_, err := s.blobs.Delete(bg, ref.BlobID)
		bestEffort(ctx, "blob_delete", err)
	}
}
