package query

import (
	"github.com/alem-hub/memory-palace/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SERVER INFO QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ServerMeta - описание сервера из каталога.
type ServerMeta struct {
	Name         string
	Version      string
	Description  string
	Capabilities []string
}

// ServerInfoDTO - ответ get_server_info.
type ServerInfoDTO struct {
	Name          string           `json:"name"`
	Version       string           `json:"version"`
	Description   string           `json:"description"`
	Capabilities  []string         `json:"capabilities"`
	Storage       string           `json:"storage"`
	Personalities []PersonalityDTO `json:"personalities"`
	Achievements  int              `json:"achievement_count"`
	Challenges    int              `json:"challenge_types"`
	LearningPaths int              `json:"learning_paths"`
}

// GetServerInfoHandler отдаёт описание сервера. Пользователь не нужен.
type GetServerInfoHandler struct {
	meta    ServerMeta
	storage string
	catalog progression.Catalog
}

// NewGetServerInfoHandler создаёт новый GetServerInfoHandler.
func NewGetServerInfoHandler(meta ServerMeta, storage string, catalog progression.Catalog) *GetServerInfoHandler {
	return &GetServerInfoHandler{meta: meta, storage: storage, catalog: catalog}
}

// Handle выполняет запрос.
func (h *GetServerInfoHandler) Handle() *ServerInfoDTO {
	personalities := h.catalog.Personalities()
	dto := &ServerInfoDTO{
		Name:          h.meta.Name,
		Version:       h.meta.Version,
		Description:   h.meta.Description,
		Capabilities:  append([]string(nil), h.meta.Capabilities...),
		Storage:       h.storage,
		Personalities: make([]PersonalityDTO, 0, len(personalities)),
		Achievements:  len(h.catalog.Achievements()),
		Challenges:    len(h.catalog.ChallengeTemplates()),
		LearningPaths: len(h.catalog.LearningPaths()),
	}
	for _, p := range personalities {
		dto.Personalities = append(dto.Personalities, PersonalityDTO{Key: p.Key, Name: p.Name, Emoji: p.Emoji})
	}
	return dto
}
