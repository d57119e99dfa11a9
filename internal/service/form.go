package service

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bottleservice/bottleservice-server/internal/domain"
	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
	"github.com/bottleservice/bottleservice-server/internal/validation"
)

// VolumeCustom is the volume choice that switches to a manually typed value.
const VolumeCustom = "custom"

// Volume choices offered by the add and edit forms, in mL.
var (
	AddVolumeOptions  = []int{100, 375, 700, 750}
	EditVolumeOptions = []int{50, 375, 700, 750}
)

// FormDefaults is what a fresh add-bottle form shows.
type FormDefaults struct {
	Types             []string `json:"types"`
	VolumeOptions     []int    `json:"volume_options"`
	EditVolumeOptions []int    `json:"edit_volume_options"`
	Cost              string   `json:"cost"`
	ABV               float64  `json:"abv"`
	Volume            int      `json:"volume"`
	Quantity          int      `json:"quantity"`
}

// AddBottleInput is one submission of the add-bottle form. Type is a catalog
// category, which adds BottleID, or "Custom", which creates a custom bottle.
type AddBottleInput struct {
	Type         string  `json:"type"`
	BottleID     string  `json:"bottle_id"`
	Name         string  `json:"name" validate:"max=200"`
	Subcategory  string  `json:"subcategory" validate:"max=200"`
	Notes        string  `json:"notes" validate:"max=2000"`
	Volume       string  `json:"volume"`
	Cost         string  `json:"cost" validate:"money"`
	ABV          float64 `json:"abv" validate:"gte=0,lte=100"`
	CustomVolume int     `json:"custom_volume" validate:"gte=0"`
	Quantity     int     `json:"quantity" validate:"gte=0"`
}

// AddBottleResult is the refetched state plus the notice for the user.
type AddBottleResult struct {
	CustomBottle *domain.CustomBottle `json:"custom_bottle,omitempty"`
	Notice       string               `json:"notice"`
	Shelf        []domain.ShelfBottle `json:"shelf"`
	Form         FormDefaults         `json:"form"` // cleared form
}

// FormService handles the add-bottle form.
type FormService struct {
	shelf     *ShelfService
	catalog   *CatalogService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewFormService creates a new form service.
func NewFormService(shelf *ShelfService, catalog *CatalogService, validator *validation.Validator, logger *slog.Logger) *FormService {
	return &FormService{
		shelf:     shelf,
		catalog:   catalog,
		validator: validator,
		logger:    logger,
	}
}

// Defaults returns the initial form state. Types lists the catalog
// categories followed by Custom.
func (s *FormService) Defaults(ctx context.Context) FormDefaults {
	return FormDefaults{
		Types:             s.catalog.Options(ctx).Categories,
		VolumeOptions:     slices.Clone(AddVolumeOptions),
		EditVolumeOptions: slices.Clone(EditVolumeOptions),
		Volume:            domain.DefaultVolumeML,
		ABV:               domain.DefaultABV,
		Cost:              "0",
		Quantity:          domain.DefaultQuantity,
	}
}

// ResolveVolume turns a volume choice into mL. A blank choice is the default
// volume; "custom" takes the manual value, zero until one is typed.
func ResolveVolume(choice string, manual int, options []int) (int, error) {
	choice = strings.TrimSpace(choice)
	switch choice {
	case "":
		return domain.DefaultVolumeML, nil
	case VolumeCustom:
		return max(manual, 0), nil
	}

	ml, err := strconv.Atoi(choice)
	if err != nil || !slices.Contains(options, ml) {
		return 0, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"volume": "must be one of " + joinInts(options) + " or " + VolumeCustom,
		})
	}
	return ml, nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

// SuccessNotice is the toast shown after a submission.
func SuccessNotice(name string) string {
	if strings.TrimSpace(name) == "" {
		name = "bottle"
	}
	return "Successfully added " + name + " to your shelf"
}

// Submit validates the form and adds the bottle.
func (s *FormService) Submit(ctx context.Context, userID string, in AddBottleInput) (*AddBottleResult, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	volume, err := ResolveVolume(in.Volume, in.CustomVolume, AddVolumeOptions)
	if err != nil {
		return nil, err
	}
	cost, err := domain.ParseCost(in.Cost)
	if err != nil {
		return nil, domainerrors.Validationf("invalid cost %q", in.Cost)
	}

	if in.Type == domain.CustomCategory {
		return s.submitCustom(ctx, userID, in, volume, cost)
	}

	if strings.TrimSpace(in.BottleID) == "" {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"bottle_id": "is required",
		})
	}

	name := ""
	if b, ok := s.catalog.Lookup(ctx, in.BottleID); ok {
		if in.Type != "" && b.Category != in.Type {
			return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
				"bottle_id": "is not a " + in.Type,
			})
		}
		name = b.Name
	}

	rows := s.shelf.AddToShelf(ctx, userID, domain.ShelfEntry{
		BottleID:        in.BottleID,
		Notes:           in.Notes,
		CurrentVolumeML: volume,
		Cost:            cost,
		Quantity:        in.Quantity,
	})

	return &AddBottleResult{
		Notice: SuccessNotice(name),
		Shelf:  rows,
		Form:   s.Defaults(ctx),
	}, nil
}

func (s *FormService) submitCustom(ctx context.Context, userID string, in AddBottleInput, volume int, cost decimal.Decimal) (*AddBottleResult, error) {
	details := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		details["name"] = "is required"
	}
	if strings.TrimSpace(in.Subcategory) == "" {
		details["subcategory"] = "is required"
	}
	if len(details) > 0 {
		return nil, domainerrors.ValidationWithDetails("validation failed", details)
	}

	res, err := s.shelf.AddCustomBottle(ctx, userID, domain.NewCustomBottle{
		Name:        strings.TrimSpace(in.Name),
		Subcategory: strings.TrimSpace(in.Subcategory),
		ABV:         in.ABV,
		VolumeML:    volume,
		Cost:        cost,
		Quantity:    in.Quantity,
	})
	if err != nil {
		return nil, err
	}

	return &AddBottleResult{
		CustomBottle: res.Bottle,
		Notice:       SuccessNotice(res.Bottle.Name),
		Shelf:        res.Shelf,
		Form:         s.Defaults(ctx),
	}, nil
}
