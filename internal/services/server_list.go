package services

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/djchat/backend/internal/models"
	"gorm.io/gorm"
)

// ErrAuthenticationRequired aborts a listing that needs an authenticated
// caller. Handlers translate it to a 401 response.
var ErrAuthenticationRequired = errors.New("authentication required")

// ValidationError carries the human-readable reason for a rejected query
// parameter. Handlers translate it to a 400 response.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

// ServerListParams holds the raw query parameters of the server-list
// endpoint. Qty and ByServerID stay strings so parsing failures surface as
// validation errors instead of silently becoming zero values.
type ServerListParams struct {
	Category       string
	Qty            string
	ByUser         bool
	ByServerID     string
	WithNumMembers bool
}

// ServerListService narrows the full server collection one filter at a time.
// Every step takes and returns a query value, so the filter ordering is
// testable against an in-memory database without the HTTP layer.
type ServerListService struct {
	DB *gorm.DB

	// StrictAuthGate preserves the legacy behavior of rejecting every
	// unauthenticated list request even when by_user was never requested.
	StrictAuthGate bool
}

func NewServerListService(db *gorm.DB, strictAuthGate bool) *ServerListService {
	return &ServerListService{DB: db, StrictAuthGate: strictAuthGate}
}

// FilterByCategory keeps servers whose category name matches exactly.
func FilterByCategory(q *gorm.DB, name string) *gorm.DB {
	return q.
		Joins("JOIN categories ON categories.id = servers.category_id").
		Where("categories.name = ?", name)
}

// FilterByMember keeps servers the given user belongs to.
func FilterByMember(q *gorm.DB, userID uint) *gorm.DB {
	return q.
		Joins("JOIN server_members ON server_members.server_id = servers.id").
		Where("server_members.user_id = ?", userID)
}

// WithMemberCount annotates every remaining row with its member count. It
// narrows nothing.
func WithMemberCount(q *gorm.DB) *gorm.DB {
	return q.Select("servers.*, (SELECT COUNT(*) FROM server_members sm WHERE sm.server_id = servers.id) AS num_members")
}

// List applies the filters in their fixed order: category, membership,
// member-count annotation, quantity cap, then server id. The id filter
// operates on the already-truncated prefix, so a matching server outside the
// first qty rows is reported as not found.
func (s *ServerListService) List(currentUser *models.User, p ServerListParams) ([]models.Server, error) {
	q := s.DB.Model(&models.Server{}).Select("servers.*").Order("servers.id")

	if p.Category != "" {
		q = FilterByCategory(q, p.Category)
	}

	if p.ByUser {
		if currentUser == nil {
			return nil, ErrAuthenticationRequired
		}
		q = FilterByMember(q, currentUser.ID)
	} else if s.StrictAuthGate && currentUser == nil {
		return nil, ErrAuthenticationRequired
	}

	if p.WithNumMembers {
		q = WithMemberCount(q)
	}

	truncated := false
	if p.Qty != "" {
		qty, err := strconv.Atoi(p.Qty)
		if err != nil || qty < 0 {
			return nil, &ValidationError{Detail: "qty value error"}
		}
		q = q.Limit(qty)
		truncated = true
	}

	if p.ByServerID != "" {
		if currentUser == nil {
			return nil, ErrAuthenticationRequired
		}
		id, err := strconv.ParseUint(p.ByServerID, 10, 64)
		if err != nil {
			return nil, &ValidationError{Detail: "Server value error"}
		}
		if truncated {
			// A LIMIT followed by a WHERE would filter before truncating;
			// wrapping the truncated query keeps prefix-then-filter order.
			q = s.DB.Table("(?) AS servers", q)
		}
		q = q.Where("servers.id = ?", id)
	}

	var servers []models.Server
	if err := q.Find(&servers).Error; err != nil {
		return nil, err
	}

	if p.ByServerID != "" && len(servers) == 0 {
		return nil, &ValidationError{Detail: fmt.Sprintf("Server with id %s not found", p.ByServerID)}
	}

	if err := s.loadAssociations(servers); err != nil {
		return nil, err
	}

	return servers, nil
}

// loadAssociations fills Category and Channels for the final result set.
// Done by hand because the id filter may have rewritten the statement into a
// derived table, which Preload cannot follow.
func (s *ServerListService) loadAssociations(servers []models.Server) error {
	if len(servers) == 0 {
		return nil
	}

	serverIDs := make([]uint, 0, len(servers))
	categoryIDs := make([]uint, 0, len(servers))
	for _, server := range servers {
		serverIDs = append(serverIDs, server.ID)
		categoryIDs = append(categoryIDs, server.CategoryID)
	}

	var categories []models.Category
	if err := s.DB.Where("id IN ?", categoryIDs).Find(&categories).Error; err != nil {
		return err
	}
	categoriesByID := make(map[uint]models.Category, len(categories))
	for _, category := range categories {
		categoriesByID[category.ID] = category
	}

	var channels []models.Channel
	if err := s.DB.Where("server_id IN ?", serverIDs).Order("id").Find(&channels).Error; err != nil {
		return err
	}
	channelsByServer := make(map[uint][]models.Channel, len(servers))
	for _, channel := range channels {
		channelsByServer[channel.ServerID] = append(channelsByServer[channel.ServerID], channel)
	}

	for i := range servers {
		servers[i].Category = categoriesByID[servers[i].CategoryID]
		servers[i].Channels = channelsByServer[servers[i].ID]
	}

	return nil
}
