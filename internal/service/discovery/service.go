package discovery

import (
	"context"
	"math"
	"sort"

	"github.com/emberdating/ember-backend/internal/app"
	"github.com/emberdating/ember-backend/internal/db"
	svcErr "github.com/emberdating/ember-backend/internal/errors"
	"github.com/emberdating/ember-backend/internal/repository"
)

// Orderings selectable by the caller. The two are never merged into one
// composite score; geo bucketing is the documented default.
const (
	SortDistance = "distance"
	SortCompat   = "compat"
)

const defaultPageSize = 20

// Query is the full discovery request.
type Query struct {
	Filters repository.DiscoveryFilters
	Sort    string
	Offset  int
	Limit   int
}

// ScoredProfile is one ranked discovery candidate. Score is only set for
// the compat ordering, DistanceKm only when coordinates exist on both
// sides under the distance ordering.
type ScoredProfile struct {
	UserID     uint64   `json:"userId"`
	Username   string   `json:"username"`
	Age        int      `json:"age"`
	Gender     string   `json:"gender"`
	City       string   `json:"city,omitempty"`
	Bio        string   `json:"bio,omitempty"`
	Score      int      `json:"score,omitempty"`
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

// Service implements discovery ranking. It is strictly read-only over
// the profile store and the like graph.
type Service struct {
	appCtx   *app.AppContext
	userRepo *repository.UserRepository
}

// NewService creates the discovery service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		userRepo: repository.NewUserRepository(appCtx.DB),
	}
}

// Discover returns the ranked candidate page for a user. Candidates are
// profile-complete users the requester has not decided on, narrowed by
// the filter predicates, then ordered:
//
//   - distance (default): candidates sharing the requester's normalized
//     city sort first; within each bucket ascending haversine distance,
//     missing coordinates last.
//   - compat: descending cultural compatibility score; ties keep the
//     candidate set's incoming order (stable sort).
func (s *Service) Discover(ctx context.Context, userID uint64, q Query) ([]ScoredProfile, error) {
	if q.Filters.MinAge > 0 && q.Filters.MaxAge > 0 && q.Filters.MinAge > q.Filters.MaxAge {
		return nil, svcErr.Invalid("minAge must not exceed maxAge")
	}
	if q.Offset < 0 {
		return nil, svcErr.Invalid("offset must not be negative")
	}

	requester, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.userRepo.FindCandidates(ctx, userID, q.Filters)
	if err != nil {
		return nil, err
	}

	switch q.Sort {
	case SortCompat:
		scores := make([]int, len(candidates))
		for i := range candidates {
			scores[i] = CompatibilityScore(requester, &candidates[i])
		}
		order := make([]int, len(candidates))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool {
			return scores[order[i]] > scores[order[j]]
		})

		ranked := make([]ScoredProfile, 0, len(order))
		for _, idx := range order {
			p := toProfile(&candidates[idx])
			p.Score = scores[idx]
			ranked = append(ranked, p)
		}
		return page(ranked, q.Offset, q.Limit), nil

	case SortDistance, "":
		dists := make([]float64, len(candidates))
		local := make([]bool, len(candidates))
		for i := range candidates {
			dists[i] = distanceBetween(requester, &candidates[i])
			local[i] = sameCity(requester, &candidates[i])
		}
		order := make([]int, len(candidates))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool {
			a, b := order[i], order[j]
			if local[a] != local[b] {
				return local[a]
			}
			return dists[a] < dists[b]
		})

		ranked := make([]ScoredProfile, 0, len(order))
		for _, idx := range order {
			p := toProfile(&candidates[idx])
			if !math.IsInf(dists[idx], 1) {
				d := dists[idx]
				p.DistanceKm = &d
			}
			ranked = append(ranked, p)
		}
		return page(ranked, q.Offset, q.Limit), nil

	default:
		return nil, svcErr.Invalid("unknown sort: " + q.Sort)
	}
}

func toProfile(u *db.User) ScoredProfile {
	return ScoredProfile{
		UserID:   u.ID,
		Username: u.Username,
		Age:      u.Age,
		Gender:   u.Gender,
		City:     u.City,
		Bio:      u.Bio,
	}
}

func page(profiles []ScoredProfile, offset, limit int) []ScoredProfile {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset >= len(profiles) {
		return []ScoredProfile{}
	}
	end := offset + limit
	if end > len(profiles) {
		end = len(profiles)
	}
	return profiles[offset:end]
}
