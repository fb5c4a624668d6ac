package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID   ID
	StudyID ID
	UnitID  ID
)

func NewRunID() RunID     { return RunID(NewID()) }
func NewStudyID() StudyID { return StudyID(NewID()) }

// String conversions for domain IDs
func (id RunID) String() string   { return ID(id).String() }
func (id StudyID) String() string { return ID(id).String() }
func (id UnitID) String() string  { return ID(id).String() }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("run ID %q is not a UUID: %w", s, err)
	}
	return RunID(s), nil
}

// ParseStudyID parses a string into StudyID
func ParseStudyID(s string) (StudyID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("study ID cannot be empty")
	}
	return StudyID(s), nil
}

// NewUnitID builds the stable identity of one work unit. Unit ids are not
// random: they name the unit so that seeds derived from them are reproducible.
func NewUnitID(repetition int, metric string, sampleCap int, domains []string) UnitID {
	return UnitID(fmt.Sprintf("r%d/%s/cap%d/%s", repetition, metric, sampleCap, strings.Join(domains, "+")))
}
