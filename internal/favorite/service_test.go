package favorite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gonsw/gonsw/internal/favorite"
	"github.com/gonsw/gonsw/internal/trip"
)

func newService(repo favorite.Repository) *favorite.Service {
	return favorite.NewService(favorite.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) },
	})
}

func TestService_Toggle(t *testing.T) {
	service := newService(favorite.NewInMemoryRepository())
	ctx := context.Background()
	in := favorite.Input{From: "Central", To: "Wynyard", RouteNo: "T1"}

	saved, err := service.Toggle(ctx, "dev_1", in)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !saved {
		t.Fatal("expected route to be saved after first toggle")
	}

	ok, err := service.IsSaved(ctx, "dev_1", in)
	if err != nil || !ok {
		t.Fatalf("expected IsSaved true, got %v (err %v)", ok, err)
	}

	saved, err = service.Toggle(ctx, "dev_1", in)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if saved {
		t.Fatal("expected route to be removed after second toggle")
	}

	items, err := service.List(ctx, "dev_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty list, got %d items", len(items))
	}
}

func TestService_CleansStationNames(t *testing.T) {
	service := newService(favorite.NewInMemoryRepository())
	ctx := context.Background()

	f, err := service.Save(ctx, "dev_1", favorite.Input{
		From:    "  Central Station, Platform 18 ",
		To:      "Wynyard Station",
		RouteNo: " T1 ",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if f.From != "Central" || f.To != "Wynyard" || f.RouteNo != "T1" {
		t.Errorf("unexpected cleaned favorite: %+v", f)
	}

	ok, err := service.IsSaved(ctx, "dev_1", favorite.Input{From: "Central", To: "Wynyard", RouteNo: "T1"})
	if err != nil || !ok {
		t.Errorf("expected cleaned route to match, got %v (err %v)", ok, err)
	}
}

func TestService_SaveIsIdempotent(t *testing.T) {
	repo := favorite.NewInMemoryRepository()
	calls := 0
	service := favorite.NewService(favorite.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		Now: func() time.Time {
			calls++
			return time.Date(2024, 5, 1, 8, calls, 0, 0, time.UTC)
		},
	})
	ctx := context.Background()
	in := favorite.Input{From: "Central", To: "Wynyard", RouteNo: "T1"}

	first, err := service.Save(ctx, "dev_1", in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	second, err := service.Save(ctx, "dev_1", in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if !first.CreatedAt.Equal(second.CreatedAt) {
		t.Errorf("expected original CreatedAt %v, got %v", first.CreatedAt, second.CreatedAt)
	}

	items, _ := service.List(ctx, "dev_1")
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}
}

func TestService_RemovePair(t *testing.T) {
	service := newService(favorite.NewInMemoryRepository())
	ctx := context.Background()

	for _, in := range []favorite.Input{
		{From: "Central", To: "Wynyard", RouteNo: "T1"},
		{From: "Central", To: "Wynyard", RouteNo: "T9"},
		{From: "Central", To: "Redfern", RouteNo: "T8"},
	} {
		if _, err := service.Save(ctx, "dev_1", in); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	removed, err := service.RemovePair(ctx, "dev_1", "Central Station", "Wynyard")
	if err != nil {
		t.Fatalf("remove pair: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	items, _ := service.List(ctx, "dev_1")
	if len(items) != 1 || items[0].To != "Redfern" {
		t.Errorf("unexpected remaining items: %+v", items)
	}
}

func TestService_OwnersAreIsolated(t *testing.T) {
	service := newService(favorite.NewInMemoryRepository())
	ctx := context.Background()
	in := favorite.Input{From: "Central", To: "Wynyard", RouteNo: "T1"}

	if _, err := service.Save(ctx, "dev_1", in); err != nil {
		t.Fatalf("save: %v", err)
	}

	ok, err := service.IsSaved(ctx, "dev_2", in)
	if err != nil {
		t.Fatalf("is saved: %v", err)
	}
	if ok {
		t.Error("expected route not to be visible to another owner")
	}

	if err := service.Clear(ctx, "dev_2"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	items, _ := service.List(ctx, "dev_1")
	if len(items) != 1 {
		t.Errorf("clearing another owner removed items: %+v", items)
	}
}

func TestService_Clear(t *testing.T) {
	service := newService(favorite.NewInMemoryRepository())
	ctx := context.Background()

	_, _ = service.Save(ctx, "dev_1", favorite.Input{From: "Central", To: "Wynyard"})
	if err := service.Clear(ctx, "dev_1"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	items, _ := service.List(ctx, "dev_1")
	if len(items) != 0 {
		t.Errorf("expected empty list, got %d", len(items))
	}
}

func TestService_ValidationErrors(t *testing.T) {
	service := newService(favorite.NewInMemoryRepository())
	ctx := context.Background()

	long := make([]byte, favorite.MaxStationLength+1)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name      string
		input     favorite.Input
		wantField string
	}{
		{"missing from", favorite.Input{To: "Wynyard"}, "from"},
		{"missing to", favorite.Input{From: "Central"}, "to"},
		{"only suffix", favorite.Input{From: "Central", To: " Station"}, "to"},
		{"long from", favorite.Input{From: string(long), To: "Wynyard"}, "from"},
		{"long route", favorite.Input{From: "Central", To: "Wynyard", RouteNo: "T1-T2-T3-T4-T5-T6"}, "routeNo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Toggle(ctx, "dev_1", tt.input)

			var verr *favorite.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}

			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for field %q, got %+v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestService_OwnerRequired(t *testing.T) {
	service := newService(favorite.NewInMemoryRepository())
	ctx := context.Background()

	if _, err := service.List(ctx, ""); !errors.Is(err, favorite.ErrOwnerRequired) {
		t.Errorf("List: expected ErrOwnerRequired, got %v", err)
	}
	if _, err := service.Toggle(ctx, "", favorite.Input{From: "a", To: "b"}); !errors.Is(err, favorite.ErrOwnerRequired) {
		t.Errorf("Toggle: expected ErrOwnerRequired, got %v", err)
	}
	if err := service.Clear(ctx, ""); !errors.Is(err, favorite.ErrOwnerRequired) {
		t.Errorf("Clear: expected ErrOwnerRequired, got %v", err)
	}
}

func TestService_PopularPairs(t *testing.T) {
	service := newService(favorite.NewInMemoryRepository())
	ctx := context.Background()

	_, _ = service.Save(ctx, "dev_1", favorite.Input{From: "Central", To: "Wynyard", RouteNo: "T1"})
	_, _ = service.Save(ctx, "dev_1", favorite.Input{From: "Central", To: "Wynyard", RouteNo: "T9"})
	_, _ = service.Save(ctx, "dev_2", favorite.Input{From: "Central", To: "Wynyard", RouteNo: "T1"})
	_, _ = service.Save(ctx, "dev_2", favorite.Input{From: "Redfern", To: "Central", RouteNo: "T8"})

	pairs, err := service.PopularPairs(ctx, 10)
	if err != nil {
		t.Fatalf("popular pairs: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %+v", pairs)
	}
	if pairs[0].From != "Central" || pairs[0].To != "Wynyard" || pairs[0].Saves != 2 {
		t.Errorf("unexpected top pair: %+v", pairs[0])
	}

	pairs, _ = service.PopularPairs(ctx, 1)
	if len(pairs) != 1 {
		t.Errorf("expected limit to apply, got %d", len(pairs))
	}
}

type failingRepo struct {
	favorite.Repository
}

func (failingRepo) Update(context.Context, string, func(*favorite.Set) error) error {
	return errors.New("db down")
}

func TestService_RepositoryErrorPropagates(t *testing.T) {
	service := newService(failingRepo{favorite.NewInMemoryRepository()})

	if _, err := service.Toggle(context.Background(), "dev_1", favorite.Input{From: "a", To: "b"}); err == nil {
		t.Fatal("expected repository error")
	}
}

func TestFromLeg(t *testing.T) {
	leg := &trip.Leg{
		RouteNo:     "T1",
		Station:     "Central",
		Destination: "Hornsby",
		Stops: []trip.Stop{
			{Name: "Town Hall Station"},
			{Name: "Wynyard Station"},
		},
	}

	in := favorite.FromLeg(leg)
	if in.From != "Central" || in.To != "Wynyard Station" || in.RouteNo != "T1" {
		t.Errorf("unexpected input: %+v", in)
	}

	leg.Stops = nil
	if got := favorite.FromLeg(leg).To; got != "Hornsby" {
		t.Errorf("expected destination fallback, got %q", got)
	}

	if got := favorite.FromLeg(nil); got != (favorite.Input{}) {
		t.Errorf("expected zero input for nil leg, got %+v", got)
	}
}

func TestFromJourney(t *testing.T) {
	j := &trip.Journey{Legs: []*trip.Leg{
		{RouteNo: "T1", Station: "Central", Destination: "Strathfield"},
		{RouteNo: "T9", Station: "Strathfield", Destination: "Epping"},
	}}

	in := favorite.FromJourney(j)
	if in.From != "Central" || in.To != "Epping" || in.RouteNo != "T1" {
		t.Errorf("unexpected input: %+v", in)
	}

	if got := favorite.FromJourney(&trip.Journey{}); got != (favorite.Input{}) {
		t.Errorf("expected zero input for empty journey, got %+v", got)
	}
}
