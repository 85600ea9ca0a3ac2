// Package relations implements add/remove toggles over the favorite,
// shopping cart and follow tables.
package relations

import (
	"context"
	"errors"

	"github.com/mikepea/foodgram/pkg/foodgram/apperr"
	"github.com/mikepea/foodgram/pkg/foodgram/metrics"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Relation names used as metric labels
const (
	RelationFavorite     = "favorite"
	RelationShoppingCart = "shopping_cart"
	RelationSubscription = "subscription"
)

// Toggle adds and removes (subject, object) rows of a relation table whose
// pair is protected by a unique index.
type Toggle[T any] struct {
	db         *gorm.DB
	name       string
	subjectCol string
	objectCol  string
	newRow     func(subjectID, objectID uint) *T
}

// NewToggle creates a toggle for T. newRow builds the row inserted by Add.
func NewToggle[T any](db *gorm.DB, name, subjectCol, objectCol string, newRow func(subjectID, objectID uint) *T) *Toggle[T] {
	return &Toggle[T]{
		db:         db,
		name:       name,
		subjectCol: subjectCol,
		objectCol:  objectCol,
		newRow:     newRow,
	}
}

// Name returns the relation name
func (t *Toggle[T]) Name() string {
	return t.name
}

// Add inserts the pair unless it is already present, in which case it
// returns apperr.ErrAlreadyExists. The insert and the presence check are one
// statement.
func (t *Toggle[T]) Add(ctx context.Context, subjectID, objectID uint) error {
	err := t.add(ctx, subjectID, objectID)
	metrics.RelationToggles.WithLabelValues(t.name, "add", metrics.Outcome(err)).Inc()
	return err
}

func (t *Toggle[T]) add(ctx context.Context, subjectID, objectID uint) error {
	result := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(t.newRow(subjectID, objectID))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return apperr.ErrAlreadyExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrAlreadyExists
	}
	return nil
}

// Remove deletes the pair, returning apperr.ErrNotPresent when it is absent
func (t *Toggle[T]) Remove(ctx context.Context, subjectID, objectID uint) error {
	err := t.remove(ctx, subjectID, objectID)
	metrics.RelationToggles.WithLabelValues(t.name, "remove", metrics.Outcome(err)).Inc()
	return err
}

func (t *Toggle[T]) remove(ctx context.Context, subjectID, objectID uint) error {
	result := t.db.WithContext(ctx).
		Where(t.subjectCol+" = ? AND "+t.objectCol+" = ?", subjectID, objectID).
		Delete(new(T))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrNotPresent
	}
	return nil
}

// Exists reports whether the pair is present
func (t *Toggle[T]) Exists(ctx context.Context, subjectID, objectID uint) (bool, error) {
	var count int64
	err := t.db.WithContext(ctx).Model(new(T)).
		Where(t.subjectCol+" = ? AND "+t.objectCol+" = ?", subjectID, objectID).
		Count(&count).Error
	return count > 0, err
}

// ObjectIDs returns the subset of objectIDs paired with subjectID
func (t *Toggle[T]) ObjectIDs(ctx context.Context, subjectID uint, objectIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool, len(objectIDs))
	if subjectID == 0 || len(objectIDs) == 0 {
		return set, nil
	}

	var ids []uint
	err := t.db.WithContext(ctx).Model(new(T)).
		Where(t.subjectCol+" = ? AND "+t.objectCol+" IN ?", subjectID, objectIDs).
		Pluck(t.objectCol, &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// NewFavorites returns the user -> recipe favorites toggle
func NewFavorites(db *gorm.DB) *Toggle[models.Favorite] {
	return NewToggle(db, RelationFavorite, "user_id", "recipe_id", func(userID, recipeID uint) *models.Favorite {
		return &models.Favorite{RecipeRelation: models.RecipeRelation{UserID: userID, RecipeID: recipeID}}
	})
}

// NewShoppingCart returns the user -> recipe shopping cart toggle
func NewShoppingCart(db *gorm.DB) *Toggle[models.ShoppingCart] {
	return NewToggle(db, RelationShoppingCart, "user_id", "recipe_id", func(userID, recipeID uint) *models.ShoppingCart {
		return &models.ShoppingCart{RecipeRelation: models.RecipeRelation{UserID: userID, RecipeID: recipeID}}
	})
}

// Subscriptions is the user -> author follow toggle. Users cannot follow
// themselves.
type Subscriptions struct {
	*Toggle[models.Follow]
}

// NewSubscriptions returns the follow toggle
func NewSubscriptions(db *gorm.DB) *Subscriptions {
	return &Subscriptions{NewToggle(db, RelationSubscription, "user_id", "author_id", func(userID, authorID uint) *models.Follow {
		return &models.Follow{UserID: userID, AuthorID: authorID}
	})}
}

// Add follows authorID, rejecting self-subscription before any write
func (s *Subscriptions) Add(ctx context.Context, userID, authorID uint) error {
	if userID == authorID {
		metrics.RelationToggles.WithLabelValues(s.name, "add", metrics.OutcomeError).Inc()
		return apperr.ErrSelfSubscription
	}
	return s.Toggle.Add(ctx, userID, authorID)
}
