package articles

import (
	"time"

	"github.com/resolve-studio/semgraph/internal/domain"
)

type blockDTO struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type articleDTO struct {
	Version   string     `json:"version"`
	Body      []blockDTO `json:"body"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toDTO(a domain.Article) articleDTO {
	body := make([]blockDTO, len(a.Body))
	for i, b := range a.Body {
		body[i] = blockDTO{Type: string(b.Type), Text: b.Text}
	}
	return articleDTO{Version: a.Version, Body: body, UpdatedAt: a.UpdatedAt}
}

func (d articleDTO) toDomain(id string) domain.Article {
	body := make([]domain.Block, len(d.Body))
	for i, b := range d.Body {
		body[i] = domain.Block{Type: domain.BlockType(b.Type), Text: b.Text}
	}
	return domain.Article{ID: id, Version: d.Version, Body: body, UpdatedAt: d.UpdatedAt}
}
