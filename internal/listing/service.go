package listing

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/pkg/request"
)

type SearchRequest struct {
	Lat       float64
	Lng       float64
	RadiusKm  float64
	From      time.Time
	To        time.Time
	Mode      availability.SearchMode
	MinPrice  *int64
	MaxPrice  *int64
	Amenities []string
	Text      string
}

type CreateRequest struct {
	HostID           string
	Title            string
	Address          string
	AvailabilityText string
	PricePerDay      int64
	Latitude         float64
	Longitude        float64
	Amenities        []string
	ImageURLs        []string
}

type Service interface {
	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)
	// Get returns a listing. When window is non-nil the detail carries the
	// availability verdict for it.
	Get(ctx context.Context, id string, window *availability.Interval) (*Detail, error)
	Create(ctx context.Context, req CreateRequest) (*Listing, error)
	ListByHost(ctx context.Context, hostID string, page request.ListParams) ([]*Listing, int, error)
	Archive(ctx context.Context, id, hostID string) error
	SetStatus(ctx context.Context, id string, status Status) (*Listing, error)
	Delete(ctx context.Context, id, hostID string) error
}

type Limits struct {
	// Candidates caps the radius query.
	Candidates int
	// Results caps the search response.
	Results int
}

type service struct {
	repo     Repository
	resolver *availability.Resolver
	limits   Limits
}

func NewService(repo Repository, resolver *availability.Resolver, limits Limits) Service {
	if limits.Results <= 0 {
		limits.Results = availability.DefaultSearchLimit
	}
	if limits.Candidates < limits.Results {
		limits.Candidates = limits.Results
	}
	return &service{repo: repo, resolver: resolver, limits: limits}
}

func (s *service) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	window, err := availability.NewInterval(req.From, req.To)
	if err != nil {
		return nil, ErrInvalidInterval
	}
	if math.Abs(req.Lat) > 90 || math.Abs(req.Lng) > 180 {
		return nil, ErrInvalidLocation
	}
	if req.RadiusKm <= 0 || req.RadiusKm > MaxRadiusKm {
		return nil, ErrInvalidRadius
	}
	if (req.MinPrice != nil && *req.MinPrice < 0) ||
		(req.MinPrice != nil && req.MaxPrice != nil && *req.MinPrice > *req.MaxPrice) {
		return nil, ErrInvalidPrice
	}

	nearby, err := s.repo.Candidates(ctx, CandidateFilter{
		Lat:       req.Lat,
		Lng:       req.Lng,
		RadiusKm:  req.RadiusKm,
		MinPrice:  req.MinPrice,
		MaxPrice:  req.MaxPrice,
		Amenities: normalizeTags(req.Amenities),
		Text:      req.Text,
		Limit:     s.limits.Candidates,
	})
	if err != nil {
		return nil, err
	}

	// Annotate mode never looks past the first Results candidates.
	if req.Mode == availability.ModeAnnotate && len(nearby) > s.limits.Results {
		nearby = nearby[:s.limits.Results]
	}

	ids := make([]string, len(nearby))
	for i, n := range nearby {
		ids[i] = n.ID
	}
	records, err := s.repo.LoadRecords(ctx, ids, window)
	if err != nil {
		return nil, err
	}

	candidates := make([]availability.Candidate[Nearby], len(nearby))
	for i, n := range nearby {
		candidates[i] = availability.Candidate[Nearby]{Item: n, Record: records[n.ID]}
	}

	results := availability.Search(s.resolver, candidates, window, req.Mode, s.limits.Results)
	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{Nearby: r.Item, IsAvailable: r.IsAvailable, Reason: r.Reason}
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id string, window *availability.Interval) (*Detail, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status == StatusArchived {
		return nil, ErrNotFound
	}

	detail := &Detail{Listing: l}
	if window == nil {
		return detail, nil
	}

	records, err := s.repo.LoadRecords(ctx, []string{l.ID}, *window)
	if err != nil {
		return nil, err
	}
	v := s.resolver.Resolve(records[l.ID], *window)
	detail.IsAvailable = &v.Available
	detail.Reason = v.Reason
	return detail, nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Listing, error) {
	if math.Abs(req.Latitude) > 90 || math.Abs(req.Longitude) > 180 {
		return nil, ErrInvalidLocation
	}
	if req.PricePerDay <= 0 {
		return nil, ErrInvalidDailyRate
	}

	l := &Listing{
		HostID:           req.HostID,
		Title:            strings.TrimSpace(req.Title),
		Address:          strings.TrimSpace(req.Address),
		AvailabilityText: strings.TrimSpace(req.AvailabilityText),
		PricePerDay:      req.PricePerDay,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Amenities:        normalizeTags(req.Amenities),
		ImageURLs:        req.ImageURLs,
		Status:           StatusActive,
	}
	if l.ImageURLs == nil {
		l.ImageURLs = []string{}
	}

	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *service) ListByHost(ctx context.Context, hostID string, page request.ListParams) ([]*Listing, int, error) {
	page.Normalize()
	return s.repo.ListByHost(ctx, hostID, page.PageSize, page.Offset())
}

func (s *service) Archive(ctx context.Context, id, hostID string) error {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if l.HostID != hostID {
		return ErrPermissionDenied
	}
	return s.repo.UpdateStatus(ctx, id, StatusArchived)
}

func (s *service) SetStatus(ctx context.Context, id string, status Status) (*Listing, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) Delete(ctx context.Context, id, hostID string) error {
	err := s.repo.Delete(ctx, id, hostID)
	if errors.Is(err, ErrNotFound) {
		// Distinguish someone else's listing from a missing one.
		if l, getErr := s.repo.GetByID(ctx, id); getErr == nil && l.HostID != hostID {
			return ErrPermissionDenied
		}
	}
	return err
}

// normalizeTags lowercases amenity tags and drops blanks and duplicates.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
