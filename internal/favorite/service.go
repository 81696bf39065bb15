package favorite

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/gonsw/gonsw/internal/trip"
)

// Validation constants.
const (
	MaxStationLength = 120
	MaxRouteNoLength = 16
)

// ServiceConfig holds configuration for the saved route service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// Now overrides the clock used for CreatedAt (optional).
	Now func() time.Time
}

// Service provides saved route operations.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new saved route service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
		now:    now,
	}
}

// List returns the owner's saved routes, oldest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]Favorite, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	set, err := s.repo.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return set.Items(), nil
}

// IsSaved reports whether the route is in the owner's list.
func (s *Service) IsSaved(ctx context.Context, ownerID string, in Input) (bool, error) {
	if ownerID == "" {
		return false, ErrOwnerRequired
	}
	in, err := normalizeInput(in)
	if err != nil {
		return false, err
	}

	set, err := s.repo.Load(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return set.Contains(in.key()), nil
}

// Save adds the route to the owner's list. Saving an existing route is a no-op.
func (s *Service) Save(ctx context.Context, ownerID string, in Input) (*Favorite, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	var saved Favorite
	err = s.repo.Update(ctx, ownerID, func(set *Set) error {
		f := s.newFavorite(ownerID, in)
		if !set.Add(f) {
			for _, existing := range set.items {
				if existing.Key() == f.Key() {
					f = existing
					break
				}
			}
		}
		saved = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &saved, nil
}

// Toggle removes the route if it is saved and saves it otherwise.
// It returns whether the route is saved afterwards.
func (s *Service) Toggle(ctx context.Context, ownerID string, in Input) (bool, error) {
	if ownerID == "" {
		return false, ErrOwnerRequired
	}
	in, err := normalizeInput(in)
	if err != nil {
		return false, err
	}

	var saved bool
	err = s.repo.Update(ctx, ownerID, func(set *Set) error {
		if set.Remove(in.key()) {
			saved = false
			return nil
		}
		set.Add(s.newFavorite(ownerID, in))
		saved = true
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Debug().
		Str("owner_id", ownerID).
		Str("from", in.From).
		Str("to", in.To).
		Str("route_no", in.RouteNo).
		Bool("saved", saved).
		Msg("saved route toggled")

	return saved, nil
}

// RemovePair removes every saved route between two stations and returns how many were removed.
func (s *Service) RemovePair(ctx context.Context, ownerID, from, to string) (int, error) {
	if ownerID == "" {
		return 0, ErrOwnerRequired
	}
	in, err := normalizeInput(Input{From: from, To: to})
	if err != nil {
		return 0, err
	}

	var removed int
	err = s.repo.Update(ctx, ownerID, func(set *Set) error {
		removed = set.RemovePair(in.From, in.To)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Clear removes all of the owner's saved routes.
func (s *Service) Clear(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}
	return s.repo.Clear(ctx, ownerID)
}

// PopularPairs returns the station pairs saved by the most owners.
func (s *Service) PopularPairs(ctx context.Context, limit int) ([]Pair, error) {
	return s.repo.ListOwnersRoutes(ctx, limit)
}

func (s *Service) newFavorite(ownerID string, in Input) Favorite {
	return Favorite{
		OwnerID:   ownerID,
		From:      in.From,
		To:        in.To,
		RouteNo:   in.RouteNo,
		CreatedAt: s.now().UTC(),
	}
}

func (in Input) key() Key {
	return Key{From: in.From, To: in.To, RouteNo: in.RouteNo}
}

// normalizeInput cleans station names the same way journey search does and validates the result.
func normalizeInput(in Input) (Input, error) {
	out := Input{
		From:    trip.CleanStationName(in.From),
		To:      trip.CleanStationName(in.To),
		RouteNo: strings.TrimSpace(in.RouteNo),
	}

	var errs []FieldError
	errs = append(errs, validateStation("from", out.From)...)
	errs = append(errs, validateStation("to", out.To)...)
	if utf8.RuneCountInString(out.RouteNo) > MaxRouteNoLength {
		errs = append(errs, FieldError{Field: "routeNo", Message: "must be at most 16 characters"})
	}

	if len(errs) > 0 {
		return Input{}, &ValidationError{Errors: errs}
	}
	return out, nil
}

func validateStation(field, name string) []FieldError {
	if name == "" {
		return []FieldError{{Field: field, Message: "is required"}}
	}
	if utf8.RuneCountInString(name) > MaxStationLength {
		return []FieldError{{Field: field, Message: "must be at most 120 characters"}}
	}
	return nil
}

// FromLeg builds a saved route for a single leg: from its station to its last stop.
func FromLeg(leg *trip.Leg) Input {
	if leg == nil {
		return Input{}
	}
	to := leg.Destination
	if n := len(leg.Stops); n > 0 && leg.Stops[n-1].Name != "" {
		to = leg.Stops[n-1].Name
	}
	return Input{From: leg.Station, To: to, RouteNo: leg.RouteNo}
}

// FromJourney builds a saved route for a whole journey, keyed on its first route.
func FromJourney(j *trip.Journey) Input {
	first, last := j.FirstLeg(), j.LastLeg()
	if first == nil || last == nil {
		return Input{}
	}
	return Input{From: first.Station, To: last.Destination, RouteNo: first.RouteNo}
}
