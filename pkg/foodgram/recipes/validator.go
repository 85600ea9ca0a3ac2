package recipes

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mikepea/foodgram/pkg/foodgram/apperr"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"gorm.io/gorm"
)

// Validation messages
const (
	MsgRequired            = "this field is required"
	MsgNameTooLong         = "ensure this field has no more than %d characters"
	MsgNoTags              = "recipe must have at least one tag"
	MsgDuplicateTag        = "tag %d is listed more than once"
	MsgUnknownTag          = "tag %d does not exist"
	MsgNoIngredients       = "recipe cannot be created without ingredients"
	MsgUnknownIngredient   = "ingredient %d does not exist"
	MsgDuplicateIngredient = "ingredient %d is listed more than once"
	MsgAmountRange         = "amount of ingredient %d must be between %d and %d"
	MsgCookingTimeRange    = "cooking time must be between %d and %d"
	MsgDuplicateRecipe     = "this recipe already exists"
)

// MaxNameLength is the longest allowed recipe name, in characters
const MaxNameLength = 200

// IngredientAmount is an ingredient reference in a write payload
type IngredientAmount struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// RecipePayload is the body of recipe create and update requests
type RecipePayload struct {
	Tags        []uint             `json:"tags"`
	Ingredients []IngredientAmount `json:"ingredients"`
	Name        string             `json:"name"`
	Image       string             `json:"image"`
	Text        string             `json:"text"`
	CookingTime int                `json:"cooking_time"`
}

// RecipeUpdate is the body of a partial recipe update. Nil scalars keep
// the stored value; anything sent, including "" and 0, is validated.
type RecipeUpdate struct {
	Tags        []uint             `json:"tags"`
	Ingredients []IngredientAmount `json:"ingredients"`
	Name        *string            `json:"name,omitempty"`
	Image       string             `json:"image,omitempty"`
	Text        *string            `json:"text,omitempty"`
	CookingTime *int               `json:"cooking_time,omitempty"`
}

// Merge returns the full payload for u applied on top of recipe
func (u RecipeUpdate) Merge(recipe *models.Recipe) RecipePayload {
	p := RecipePayload{
		Tags:        u.Tags,
		Ingredients: u.Ingredients,
		Name:        recipe.Name,
		Image:       u.Image,
		Text:        recipe.Text,
		CookingTime: recipe.CookingTime,
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Text != nil {
		p.Text = *u.Text
	}
	if u.CookingTime != nil {
		p.CookingTime = *u.CookingTime
	}
	return p
}

// Validator checks recipe payloads against the stored tags, ingredients and
// recipes.
type Validator struct {
	db *gorm.DB
}

// NewValidator creates a validator
func NewValidator(db *gorm.DB) *Validator {
	return &Validator{db: db}
}

// Validate reports every rule p breaks in a single *apperr.ValidationError.
// excludeID is the recipe being updated and is ignored by the duplicate
// check; pass 0 when creating, which also makes the image mandatory.
func (v *Validator) Validate(ctx context.Context, p RecipePayload, excludeID uint) error {
	verr := apperr.NewValidationError()
	db := v.db.WithContext(ctx)

	v.checkScalars(verr, p, excludeID == 0)
	if err := v.checkTags(db, verr, p.Tags); err != nil {
		return err
	}
	if err := v.checkIngredients(db, verr, p.Ingredients); err != nil {
		return err
	}
	if err := v.checkDuplicate(db, verr, p, excludeID); err != nil {
		return err
	}

	return verr.OrNil()
}

func (v *Validator) checkScalars(verr *apperr.ValidationError, p RecipePayload, creating bool) {
	switch {
	case strings.TrimSpace(p.Name) == "":
		verr.Add("name", MsgRequired)
	case utf8.RuneCountInString(p.Name) > MaxNameLength:
		verr.Add("name", MsgNameTooLong, MaxNameLength)
	}
	if strings.TrimSpace(p.Text) == "" {
		verr.Add("text", MsgRequired)
	}
	if creating && p.Image == "" {
		verr.Add("image", MsgRequired)
	}
	if p.CookingTime < models.MinAmount || p.CookingTime > models.MaxAmount {
		verr.Add("cooking_time", MsgCookingTimeRange, models.MinAmount, models.MaxAmount)
	}
}

func (v *Validator) checkTags(db *gorm.DB, verr *apperr.ValidationError, tags []uint) error {
	if len(tags) == 0 {
		verr.Add("tags", MsgNoTags)
		return nil
	}

	unique := uniqueIDs(verr, "tags", MsgDuplicateTag, tags)

	var found []uint
	if err := db.Model(&models.Tag{}).Where("id IN ?", unique).Pluck("id", &found).Error; err != nil {
		return err
	}
	for _, id := range missingIDs(unique, found) {
		verr.Add("tags", MsgUnknownTag, id)
	}
	return nil
}

func (v *Validator) checkIngredients(db *gorm.DB, verr *apperr.ValidationError, items []IngredientAmount) error {
	if len(items) == 0 {
		verr.Add("ingredients", MsgNoIngredients)
		return nil
	}

	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	unique := uniqueIDs(verr, "ingredients", MsgDuplicateIngredient, ids)

	var found []uint
	if err := db.Model(&models.Ingredient{}).Where("id IN ?", unique).Pluck("id", &found).Error; err != nil {
		return err
	}
	for _, id := range missingIDs(unique, found) {
		verr.Add("ingredients", MsgUnknownIngredient, id)
	}

	for _, item := range items {
		if item.Amount < models.MinAmount || item.Amount > models.MaxAmount {
			verr.Add("ingredients", MsgAmountRange, item.ID, models.MinAmount, models.MaxAmount)
		}
	}
	return nil
}

func (v *Validator) checkDuplicate(db *gorm.DB, verr *apperr.ValidationError, p RecipePayload, excludeID uint) error {
	if verr.Has("name") || verr.Has("text") {
		return nil
	}

	query := db.Model(&models.Recipe{}).Where("name = ? AND text = ?", p.Name, p.Text)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		verr.Add(apperr.NonFieldErrors, MsgDuplicateRecipe)
	}
	return nil
}

// uniqueIDs returns ids without repeats, in first-seen order, recording a
// message for each id that appears more than once.
func uniqueIDs(verr *apperr.ValidationError, field, msg string, ids []uint) []uint {
	seen := make(map[uint]int, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		seen[id]++
		if seen[id] == 1 {
			unique = append(unique, id)
		} else if seen[id] == 2 {
			verr.Add(field, msg, id)
		}
	}
	return unique
}

// missingIDs returns the members of want absent from found, sorted
func missingIDs(want, found []uint) []uint {
	present := make(map[uint]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	var missing []uint
	for _, id := range want {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}
