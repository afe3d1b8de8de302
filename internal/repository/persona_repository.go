package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dos-platform/tutor-api/internal/models"
)

// PersonaRepository reads tutor personas and their per-enrolment bindings.
type PersonaRepository struct {
	db *sqlx.DB
}

// NewPersonaRepository constructs a PersonaRepository.
func NewPersonaRepository(db *sqlx.DB) *PersonaRepository {
	return &PersonaRepository{db: db}
}

// FindConfigured returns the persona bound to the student's enrolment via
// tutor_configs, or nil when nothing is configured. Missing rows anywhere in
// the chain resolve to nil so callers fall back to the default persona.
func (r *PersonaRepository) FindConfigured(ctx context.Context, studentID string, enrolmentID int64) (*models.TutorPersona, error) {
	var persona models.TutorPersona
	query := `SELECT p.id, p.student_id, p.name, p.personality_prompt, p.tts_voice_model, p.tts_speed
        FROM tutor_configs tc
        JOIN tutor_personas p ON p.id = tc.persona_id
        WHERE tc.student_id = $1 AND tc.enrolment_id = $2`
	if err := r.db.GetContext(ctx, &persona, query, studentID, enrolmentID); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find tutor persona: %w", err)
	}
	return &persona, nil
}
