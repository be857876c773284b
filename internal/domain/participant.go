// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const MaxDisplayNameLen = 64

var (
	ErrNameEmpty   = errors.New("display name empty")
	ErrNameTooLong = errors.New("display name too long")
)

type ParticipantID string

// Participant represents a conference member as seen by the stage.
// No transport or lifecycle logic here.
type Participant struct {
	ID   ParticipantID `json:"id"`
	Name string        `json:"name"`
}

// NewParticipant is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewParticipant(name string) (*Participant, error) {
	if len(name) == 0 {
		return nil, ErrNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return nil, ErrNameTooLong
	}
	return &Participant{ID: ParticipantID(uuid.NewString()), Name: name}, nil
}

func (p *Participant) SetName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return ErrNameTooLong
	}
	p.Name = name
	return nil
}

// Initials returns up to two uppercased initials for avatar rendering,
// or "?" when the display name is blank.
func (p *Participant) Initials() string {
	var b strings.Builder
	for i, word := range strings.Fields(p.Name) {
		if i == 2 {
			break
		}
		r := []rune(word)
		b.WriteRune(unicode.ToUpper(r[0]))
	}
	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}
