package rule

import (
	"context"

	"github.com/curbshare/parking-backend/internal/pkg/apperror"
)

// Actor is the caller of a host endpoint.
type Actor struct {
	UserID  string
	IsAdmin bool
}

type Service interface {
	List(ctx context.Context, actor Actor, listingID string) ([]*Entry, error)
	Create(ctx context.Context, actor Actor, listingID string, in Input) (*Entry, error)
	Update(ctx context.Context, actor Actor, id string, p Patch) (*Entry, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type service struct {
	repo Repository
	// enabled is false when the schema has no listing_availability table.
	enabled bool
}

func NewService(repo Repository, enabled bool) Service {
	return &service{repo: repo, enabled: enabled}
}

func (s *service) authorizeListing(ctx context.Context, actor Actor, listingID string) error {
	if !s.enabled {
		return ErrUnsupported
	}
	hostID, err := s.repo.ListingHost(ctx, listingID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin && hostID != actor.UserID {
		return ErrPermissionDenied
	}
	return nil
}

func (s *service) ownedEntry(ctx context.Context, actor Actor, id string) (*Entry, error) {
	if !s.enabled {
		return nil, ErrUnsupported
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && e.HostID != actor.UserID {
		return nil, ErrPermissionDenied
	}
	return e, nil
}

func (s *service) List(ctx context.Context, actor Actor, listingID string) ([]*Entry, error) {
	if err := s.authorizeListing(ctx, actor, listingID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, listingID)
}

func (s *service) Create(ctx context.Context, actor Actor, listingID string, in Input) (*Entry, error) {
	if err := s.authorizeListing(ctx, actor, listingID); err != nil {
		return nil, err
	}

	e := &Entry{ListingID: listingID}
	e.Kind = in.Kind
	e.StartsAt = in.StartsAt.UTC()
	e.EndsAt = in.EndsAt.UTC()
	e.RepeatWeekdays = in.RepeatWeekdays
	if in.RepeatUntil != nil {
		until := in.RepeatUntil.UTC()
		e.RepeatUntil = &until
	}
	if err := e.Validate(); err != nil {
		return nil, apperror.Wrap(err, ErrInvalidRule.Code, ErrInvalidRule.Message)
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *service) Update(ctx context.Context, actor Actor, id string, p Patch) (*Entry, error) {
	e, err := s.ownedEntry(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	p.apply(&e.Rule)
	if err := e.Validate(); err != nil {
		return nil, apperror.Wrap(err, ErrInvalidRule.Code, ErrInvalidRule.Message)
	}

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *service) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.ownedEntry(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
