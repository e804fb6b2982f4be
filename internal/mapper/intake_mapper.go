package mapper

import (
	"lab-compare-be/internal/dto"
	"lab-compare-be/pkg/store"
)

type IntakeMapper struct{}

func NewIntakeMapper() *IntakeMapper {
	return &IntakeMapper{}
}

// ToSessionResponse never exposes storage locators.
func (m *IntakeMapper) ToSessionResponse(s store.Session) *dto.IntakeSessionResponse {
	res := &dto.IntakeSessionResponse{
		UserID:    s.UserID,
		State:     s.State,
		Documents: make([]dto.IntakeDocumentDTO, 0, len(s.Documents)),
	}
	if res.State == "" {
		res.State = store.StateIdle
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		res.UpdatedAt = &updated
	}
	for _, doc := range s.Documents {
		res.Documents = append(res.Documents, dto.IntakeDocumentDTO{
			Id:         doc.ID,
			FileName:   doc.FileName,
			Size:       doc.Size,
			ReceivedAt: doc.ReceivedAt,
		})
	}
	return res
}
