package services

import (
	"context"
	"errors"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/repositories"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/logger"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/metrics"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/realtime"
)

const (
	StateLiked      = "liked"
	StateUnliked    = "unliked"
	StateFollowing  = "following"
	StateUnfollowed = "unfollowed"
)

// ToggleResult is the committed state of one relation after a toggle.
type ToggleResult struct {
	Active bool   `json:"active"`
	State  string `json:"state"`
	Count  int    `json:"count"`
}

// binding adapts one relation kind to the engine: where its target lives,
// which arrays mirror the ledger and what notification it produces.
type binding struct {
	kind models.RelationKind
	// loadTarget returns the user notified about the relation and the current member count.
	loadTarget func(ctx context.Context, target string) (owner string, count int, err error)
	add        func(ctx context.Context, actor, target string) (int, error)
	remove     func(ctx context.Context, actor, target string) (int, error)
	event      func(target string) models.NotificationEvent
	on, off    string
	rtEvent    string
}

func (b binding) state(active bool) string {
	if active {
		return b.on
	}
	return b.off
}

// ToggleEngine keeps the relation ledger, the denormalized arrays on both
// ends and the owner's notification inbox in step.
type ToggleEngine struct {
	store    *repositories.Store
	notifier realtime.Notifier
	now      clock
	bindings map[models.RelationKind]binding
}

func NewToggleEngine(store *repositories.Store, notifier realtime.Notifier) *ToggleEngine {
	e := &ToggleEngine{store: store, notifier: notifier, now: systemClock}
	e.bindings = map[models.RelationKind]binding{
		models.RelationLike:   e.likeBinding(),
		models.RelationFollow: e.followBinding(),
	}
	return e
}

func (e *ToggleEngine) likeBinding() binding {
	posts, users := e.store.Posts, e.store.Users
	return binding{
		kind: models.RelationLike,
		loadTarget: func(ctx context.Context, postID string) (string, int, error) {
			post, err := posts.GetByID(ctx, postID)
			if err != nil {
				return "", 0, err
			}
			return post.OwnerID, len(post.Likes), nil
		},
		add: func(ctx context.Context, actor, postID string) (int, error) {
			post, err := posts.AddToSet(ctx, postID, models.PostLikes, actor)
			if err != nil {
				return 0, err
			}
			if _, err := users.AddToSet(ctx, actor, models.UserLikes, postID); err != nil {
				return 0, err
			}
			return len(post.Likes), nil
		},
		remove: func(ctx context.Context, actor, postID string) (int, error) {
			post, err := posts.Pull(ctx, postID, models.PostLikes, actor)
			if err != nil {
				return 0, err
			}
			if _, err := users.Pull(ctx, actor, models.UserLikes, postID); err != nil {
				return 0, err
			}
			return len(post.Likes), nil
		},
		event:   func(postID string) models.NotificationEvent { return models.LikeEvent{PostID: postID} },
		on:      StateLiked,
		off:     StateUnliked,
		rtEvent: realtime.EventLikeToggled,
	}
}

func (e *ToggleEngine) followBinding() binding {
	users := e.store.Users
	return binding{
		kind: models.RelationFollow,
		loadTarget: func(ctx context.Context, userID string) (string, int, error) {
			user, err := users.GetByID(ctx, userID)
			if err != nil {
				return "", 0, err
			}
			return user.ID, len(user.Followers), nil
		},
		add: func(ctx context.Context, actor, target string) (int, error) {
			followed, err := users.AddToSet(ctx, target, models.UserFollowers, actor)
			if err != nil {
				return 0, err
			}
			if _, err := users.AddToSet(ctx, actor, models.UserFollowing, target); err != nil {
				return 0, err
			}
			return len(followed.Followers), nil
		},
		remove: func(ctx context.Context, actor, target string) (int, error) {
			followed, err := users.Pull(ctx, target, models.UserFollowers, actor)
			if err != nil {
				return 0, err
			}
			if _, err := users.Pull(ctx, actor, models.UserFollowing, target); err != nil {
				return 0, err
			}
			return len(followed.Followers), nil
		},
		event:   func(string) models.NotificationEvent { return models.FollowEvent{} },
		on:      StateFollowing,
		off:     StateUnfollowed,
		rtEvent: realtime.EventFollowToggled,
	}
}

// Toggle flips actor -> target for kind.
func (e *ToggleEngine) Toggle(ctx context.Context, actor, target string, kind models.RelationKind) (ToggleResult, error) {
	b, ok := e.bindings[kind]
	if !ok {
		return ToggleResult{}, models.NewValidationError("unknown relation kind " + string(kind))
	}
	return e.apply(ctx, b, actor, target, nil)
}

func (e *ToggleEngine) ToggleLike(ctx context.Context, actor, postID string) (ToggleResult, error) {
	return e.Toggle(ctx, actor, postID, models.RelationLike)
}

// Follow fails with a conflict when actor already follows target.
func (e *ToggleEngine) Follow(ctx context.Context, actor, target string) (ToggleResult, error) {
	want := true
	return e.apply(ctx, e.bindings[models.RelationFollow], actor, target, &want)
}

// Unfollow fails with a conflict when actor does not follow target.
func (e *ToggleEngine) Unfollow(ctx context.Context, actor, target string) (ToggleResult, error) {
	want := false
	return e.apply(ctx, e.bindings[models.RelationFollow], actor, target, &want)
}

// errEdgeGone aborts a toggle whose delete found no edge: a concurrent
// request removed it after our read.
var errEdgeGone = errors.New("relation removed concurrently")

// outcome collects what happened inside the transaction for post-commit work.
type outcome struct {
	result  ToggleResult
	owner   string
	added   *models.Notification
	removed bool
}

// apply runs one toggle. want == nil flips the relation; otherwise the
// relation must currently be !*want.
func (e *ToggleEngine) apply(ctx context.Context, b binding, actor, target string, want *bool) (ToggleResult, error) {
	if actor == "" || target == "" {
		return ToggleResult{}, models.NewValidationError("actor and target are required")
	}
	if b.kind == models.RelationFollow && actor == target {
		return ToggleResult{}, models.NewValidationError("you cannot follow yourself")
	}

	var out outcome
	err := e.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		out = outcome{}
		owner, _, err := b.loadTarget(ctx, target)
		if err != nil {
			return err
		}
		out.owner = owner

		exists := true
		if _, err := e.store.Relations.Find(ctx, b.kind, actor, target); err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				return err
			}
			exists = false
		}
		if want != nil && *want == exists {
			return conflictFor(b, exists)
		}

		ev := b.event(target)
		if exists {
			deleted, err := e.store.Relations.Delete(ctx, b.kind, actor, target)
			if err != nil {
				return err
			}
			if !deleted {
				return errEdgeGone
			}
			count, err := b.remove(ctx, actor, target)
			if err != nil {
				return err
			}
			out.result = ToggleResult{Active: false, State: b.off, Count: count}
			if owner != actor {
				removed, err := e.store.Notifications.Remove(ctx, owner, models.MatcherFor(actor, ev))
				if err != nil {
					return err
				}
				out.removed = removed
			}
			return nil
		}

		if err := e.store.Relations.Insert(ctx, models.NewRelation(b.kind, actor, target)); err != nil {
			return err
		}
		count, err := b.add(ctx, actor, target)
		if err != nil {
			return err
		}
		out.result = ToggleResult{Active: true, State: b.on, Count: count}
		if owner != actor {
			n := models.NewNotification(actor, ev, e.now())
			added, err := e.store.Notifications.Add(ctx, owner, n)
			if err != nil {
				return err
			}
			if added {
				out.added = &n
			}
		}
		return nil
	})

	if lostInsert, lostDelete := errors.Is(err, repositories.ErrDuplicate), errors.Is(err, errEdgeGone); lostInsert || lostDelete {
		// A concurrent request changed the same edge after our read. Its
		// transaction owns the side effects; report the state it committed.
		metrics.ToggleRaceTotal.WithLabelValues(string(b.kind)).Inc()
		logger.Ctx(ctx).Debug().Str("kind", string(b.kind)).Str(logger.FieldUserID, actor).Bool("insert", lostInsert).Msg("relation toggle lost race")
		if want != nil {
			return ToggleResult{}, conflictFor(b, lostInsert)
		}
		return e.current(ctx, b, actor, target)
	}
	if err != nil {
		metrics.TxAbortTotal.WithLabelValues("toggle_" + string(b.kind)).Inc()
		return ToggleResult{}, err
	}

	metrics.ToggleTotal.WithLabelValues(string(b.kind), out.result.State).Inc()
	e.emit(ctx, b, actor, target, out)
	return out.result, nil
}

// current reads the committed state of actor -> target outside any
// transaction. The count comes from the relation ledger.
func (e *ToggleEngine) current(ctx context.Context, b binding, actor, target string) (ToggleResult, error) {
	if _, _, err := b.loadTarget(ctx, target); err != nil {
		return ToggleResult{}, err
	}
	count, err := e.store.Relations.Count(ctx, b.kind, target)
	if err != nil {
		return ToggleResult{}, err
	}
	active := true
	if _, err := e.store.Relations.Find(ctx, b.kind, actor, target); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return ToggleResult{}, err
		}
		active = false
	}
	return ToggleResult{Active: active, State: b.state(active), Count: int(count)}, nil
}

func (e *ToggleEngine) emit(ctx context.Context, b binding, actor, target string, out outcome) {
	if out.owner == actor {
		return
	}
	e.notifier.Notify(ctx, out.owner, b.rtEvent, map[string]any{
		"actor_id":  actor,
		"target_id": target,
		"active":    out.result.Active,
		"count":     out.result.Count,
	})
	if out.added != nil {
		e.notifier.Notify(ctx, out.owner, realtime.EventNotificationNew, out.added)
	}
	if out.removed {
		e.notifier.Notify(ctx, out.owner, realtime.EventNotificationRemoved, map[string]any{
			"sender_id": actor,
			"kind":      b.event(target).Kind(),
			"target_id": target,
		})
	}
}

func conflictFor(b binding, exists bool) error {
	switch {
	case b.kind == models.RelationFollow && exists:
		return models.NewConflictError("already following this user")
	case b.kind == models.RelationFollow:
		return models.NewConflictError("not following this user")
	case exists:
		return models.NewConflictError("post already liked")
	default:
		return models.NewConflictError("post not liked")
	}
}
