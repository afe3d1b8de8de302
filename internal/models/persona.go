package models

// Persona defaults applied when a student has no customized tutor.
const (
	DefaultPersonaName   = "TutorBot"
	DefaultPersonaPrompt = "Be warm, concise, and Socratic."
	DefaultTTSVoiceModel = "aura-2-draco-en"
	DefaultTTSSpeed      = "1.0"
)

// TutorPersona customizes the agent's name, voice and personality.
// A NULL student_id marks a platform-provided persona.
type TutorPersona struct {
	ID                int64   `db:"id" json:"id"`
	StudentID         *string `db:"student_id" json:"student_id,omitempty"`
	Name              string  `db:"name" json:"name"`
	PersonalityPrompt string  `db:"personality_prompt" json:"personality_prompt"`
	TTSVoiceModel     *string `db:"tts_voice_model" json:"tts_voice_model,omitempty"`
	TTSSpeed          *string `db:"tts_speed" json:"tts_speed,omitempty"`
}

// TutorConfig pins a persona to one student+enrolment pair.
type TutorConfig struct {
	ID          int64  `db:"id" json:"id"`
	StudentID   string `db:"student_id" json:"student_id"`
	EnrolmentID int64  `db:"enrolment_id" json:"enrolment_id"`
	PersonaID   *int64 `db:"persona_id" json:"persona_id,omitempty"`
}

// ResolvedPersona is the persona the agent actually runs with, defaults
// filled in.
type ResolvedPersona struct {
	Name          string `json:"name"`
	Prompt        string `json:"prompt"`
	TTSVoiceModel string `json:"tts_voice_model"`
	TTSSpeed      string `json:"tts_speed"`
}

// DefaultPersona returns the stock tutor used when nothing is configured.
func DefaultPersona() ResolvedPersona {
	return ResolvedPersona{
		Name:          DefaultPersonaName,
		Prompt:        DefaultPersonaPrompt,
		TTSVoiceModel: DefaultTTSVoiceModel,
		TTSSpeed:      DefaultTTSSpeed,
	}
}

// Resolve converts a stored persona into a runtime one, filling gaps with
// the defaults.
func (p TutorPersona) Resolve() ResolvedPersona {
	out := DefaultPersona()
	if p.Name != "" {
		out.Name = p.Name
	}
	if p.PersonalityPrompt != "" {
		out.Prompt = p.PersonalityPrompt
	}
	if p.TTSVoiceModel != nil && *p.TTSVoiceModel != "" {
		out.TTSVoiceModel = *p.TTSVoiceModel
	}
	if p.TTSSpeed != nil && *p.TTSSpeed != "" {
		out.TTSSpeed = *p.TTSSpeed
	}
	return out
}
