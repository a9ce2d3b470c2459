package palace

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// READ MODELS
// ══════════════════════════════════════════════════════════════════════════════

// JourneyStop - одна остановка прогулки.
type JourneyStop struct {
	LocationID   string          `json:"location_id"`
	Position     shared.Position `json:"position"`
	VisualAnchor string          `json:"visual_anchor"`
	Content      string          `json:"content"`
	Keywords     []string        `json:"keywords"`
}

// Journey - прогулка по комнате в порядке позиций.
type Journey struct {
	Room           string        `json:"room"`
	Description    string        `json:"description"`
	Path           []JourneyStop `json:"journey_path"`
	TotalMemories  int           `json:"total_memories"`
	ConnectedRooms []string      `json:"connected_rooms,omitempty"`
}

// SearchHit - найденное воспоминание.
type SearchHit struct {
	LocationID     string          `json:"location_id"`
	Room           string          `json:"room"`
	Position       shared.Position `json:"position"`
	VisualAnchor   string          `json:"visual_anchor"`
	Content        string          `json:"content"`
	Keywords       []string        `json:"keywords"`
	RelevanceScore int             `json:"relevance_score"`
}

// SearchResult - результат поиска.
type SearchResult struct {
	Query        string      `json:"query"`
	RoomFilter   string      `json:"room_filter,omitempty"`
	ResultsCount int         `json:"results_count"`
	Results      []SearchHit `json:"results"`
}

// RoomStats - статистика комнаты.
type RoomStats struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemoryCount int      `json:"memory_count"`
	Connections []string `json:"connections"`
}

// RecentActivity - недавно затронутое воспоминание.
type RecentActivity struct {
	LocationID   string    `json:"location_id"`
	Room         string    `json:"room"`
	VisualAnchor string    `json:"visual_anchor"`
	LastAccessed time.Time `json:"last_accessed"`
}

// Overview - обзор дворца.
type Overview struct {
	TotalRooms     int              `json:"total_rooms"`
	TotalMemories  int              `json:"total_memories"`
	Rooms          []RoomStats      `json:"room_stats"`
	RecentActivity []RecentActivity `json:"recent_activity"`
	Health         string           `json:"palace_health"`
}

const (
	// recentActivityLimit - сколько недавних воспоминаний показывает обзор.
	recentActivityLimit = 5

	HealthExcellent = "excellent"
	HealthEmpty     = "empty"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// Service - операции над дворцом одного пользователя.
type Service struct {
	repo      Repository
	ids       LocationIDGenerator
	intervals []int
}

// NewService создаёт сервис дворца.
func NewService(repo Repository, ids LocationIDGenerator, reviewIntervals []int) *Service {
	if len(reviewIntervals) == 0 {
		reviewIntervals = DefaultReviewIntervals
	}
	return &Service{repo: repo, ids: ids, intervals: reviewIntervals}
}

// CreateRoom создаёт комнату. Повтор имени - shared.ErrRoomExists.
func (s *Service) CreateRoom(ctx context.Context, userID, name, description string, connections []string, now time.Time) (*Room, error) {
	room, err := NewRoom(userID, name, description, connections, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// StoreMemory сохраняет воспоминание в существующей комнате.
func (s *Service) StoreMemory(ctx context.Context, params NewLocationParams, now time.Time) (*Location, error) {
	if _, err := s.requireRoom(ctx, params.UserID, params.Room); err != nil {
		return nil, err
	}

	loc, err := NewLocation(s.ids.LocationID(params.Room, params.Content, now), params, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddLocation(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

// Journey проходит воспоминания комнаты по (x, y, z) и отмечает обращение.
func (s *Service) Journey(ctx context.Context, userID, roomName string, includeConnections bool, now time.Time) (*Journey, error) {
	room, err := s.requireRoom(ctx, userID, roomName)
	if err != nil {
		return nil, err
	}

	locs, err := s.repo.ListLocations(ctx, userID, room.Name)
	if err != nil {
		return nil, err
	}
	sortByPosition(locs)

	journey := &Journey{
		Room:        room.Name,
		Description: room.Description,
		Path:        make([]JourneyStop, 0, len(locs)),
	}
	ids := make([]string, 0, len(locs))
	for _, loc := range locs {
		ids = append(ids, loc.ID)
		journey.Path = append(journey.Path, JourneyStop{
			LocationID:   loc.ID,
			Position:     loc.Position,
			VisualAnchor: loc.VisualAnchor,
			Content:      loc.Content,
			Keywords:     loc.Keywords,
		})
	}
	journey.TotalMemories = len(journey.Path)

	if includeConnections && room.IsConnected() {
		journey.ConnectedRooms = append([]string(nil), room.Connections...)
	}

	if len(ids) > 0 {
		if err := s.repo.TouchLocations(ctx, userID, ids, now); err != nil {
			return nil, err
		}
	}
	return journey, nil
}

// Search ищет воспоминания по подстроке; результат по убыванию релевантности.
func (s *Service) Search(ctx context.Context, userID, query, roomFilter string, now time.Time) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, shared.ErrEmptySearchQuery
	}

	locs, err := s.repo.ListLocations(ctx, userID, roomFilter)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Query: query, RoomFilter: roomFilter, Results: make([]SearchHit, 0)}
	var touched []string
	for _, loc := range locs {
		score := loc.Relevance(query)
		if score == 0 {
			continue
		}
		touched = append(touched, loc.ID)
		result.Results = append(result.Results, SearchHit{
			LocationID:     loc.ID,
			Room:           loc.Room,
			Position:       loc.Position,
			VisualAnchor:   loc.VisualAnchor,
			Content:        loc.Content,
			Keywords:       loc.Keywords,
			RelevanceScore: score,
		})
	}
	sort.SliceStable(result.Results, func(i, j int) bool {
		return result.Results[i].RelevanceScore > result.Results[j].RelevanceScore
	})
	result.ResultsCount = len(result.Results)

	if len(touched) > 0 {
		if err := s.repo.TouchLocations(ctx, userID, touched, now); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Overview собирает статистику дворца.
func (s *Service) Overview(ctx context.Context, userID string) (*Overview, error) {
	rooms, err := s.repo.ListRooms(ctx, userID)
	if err != nil {
		return nil, err
	}
	locs, err := s.repo.ListLocations(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rooms))
	for _, loc := range locs {
		counts[loc.Room]++
	}

	ov := &Overview{
		TotalRooms:     len(rooms),
		TotalMemories:  len(locs),
		Rooms:          make([]RoomStats, 0, len(rooms)),
		RecentActivity: make([]RecentActivity, 0, recentActivityLimit),
		Health:         HealthEmpty,
	}
	if len(locs) > 0 {
		ov.Health = HealthExcellent
	}
	for _, r := range rooms {
		ov.Rooms = append(ov.Rooms, RoomStats{
			Name:        r.Name,
			Description: r.Description,
			MemoryCount: counts[r.Name],
			Connections: r.Connections,
		})
	}

	recent := append([]*Location(nil), locs...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].LastAccessed.After(recent[j].LastAccessed)
	})
	if len(recent) > recentActivityLimit {
		recent = recent[:recentActivityLimit]
	}
	for _, loc := range recent {
		ov.RecentActivity = append(ov.RecentActivity, RecentActivity{
			LocationID:   loc.ID,
			Room:         loc.Room,
			VisualAnchor: loc.VisualAnchor,
			LastAccessed: loc.LastAccessed,
		})
	}
	return ov, nil
}

// ReviewSchedule считает расписание повторения; пустое room - весь дворец.
func (s *Service) ReviewSchedule(ctx context.Context, userID, roomName string, now time.Time) ([]ReviewItem, error) {
	if roomName != "" {
		if _, err := s.requireRoom(ctx, userID, roomName); err != nil {
			return nil, err
		}
	}
	locs, err := s.repo.ListLocations(ctx, userID, roomName)
	if err != nil {
		return nil, err
	}
	return Schedule(locs, s.intervals, now), nil
}

// Snapshot строит снимок дворца для движка прогресса.
// Комнаты идут в порядке создания, воспоминания - по позиции.
func (s *Service) Snapshot(ctx context.Context, userID string) (progression.PalaceSnapshot, error) {
	rooms, err := s.repo.ListRooms(ctx, userID)
	if err != nil {
		return progression.PalaceSnapshot{}, fmt.Errorf("snapshot rooms: %w", err)
	}
	locs, err := s.repo.ListLocations(ctx, userID, "")
	if err != nil {
		return progression.PalaceSnapshot{}, fmt.Errorf("snapshot locations: %w", err)
	}
	sortByPosition(locs)

	byRoom := make(map[string][]progression.MemorySnapshot, len(rooms))
	for _, loc := range locs {
		byRoom[loc.Room] = append(byRoom[loc.Room], progression.MemorySnapshot{
			ID:              loc.ID,
			HasVisualAnchor: loc.HasVisualAnchor(),
		})
	}

	snap := progression.PalaceSnapshot{
		RoomCount:   len(rooms),
		MemoryCount: len(locs),
		Rooms:       make([]progression.RoomSnapshot, 0, len(rooms)),
	}
	for _, r := range rooms {
		if r.IsConnected() {
			snap.ConnectedRooms++
		}
		snap.Rooms = append(snap.Rooms, progression.RoomSnapshot{
			Name:     r.Name,
			Memories: byRoom[r.Name],
		})
	}
	return snap, nil
}

// RoomNames возвращает имена комнат пользователя.
func (s *Service) RoomNames(ctx context.Context, userID string) ([]string, error) {
	rooms, err := s.repo.ListRooms(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rooms))
	for _, r := range rooms {
		names = append(names, r.Name)
	}
	return names, nil
}

func (s *Service) requireRoom(ctx context.Context, userID, name string) (*Room, error) {
	room, err := s.repo.GetRoom(ctx, userID, name)
	if err == nil {
		return room, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}
	names, listErr := s.RoomNames(ctx, userID)
	if listErr != nil {
		return nil, err
	}
	return nil, shared.ErrRoomNotFound.WithOptions(names...)
}

func sortByPosition(locs []*Location) {
	sort.SliceStable(locs, func(i, j int) bool {
		return locs[i].Position.Less(locs[j].Position)
	})
}
