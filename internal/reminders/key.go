// Package reminders evaluates tasks against their reminder rules and delivers
// each notification at most once.
package reminders

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies the rule that produced a reminder
type Kind string

const (
	KindCustom      Kind = "custom"
	KindDueTomorrow Kind = "default-due-tomorrow"
	KindOverdue     Kind = "overdue"
)

// Key identifies one notification occasion for dedup purposes.
// HoursBefore is only meaningful for KindCustom.
type Key struct {
	TaskID      uuid.UUID `json:"task_id"`
	Kind        Kind      `json:"kind"`
	HoursBefore int       `json:"hours_before,omitempty"`
}

// CustomKey builds the key of a custom hour-offset reminder
func CustomKey(taskID uuid.UUID, hoursBefore int) Key {
	return Key{TaskID: taskID, Kind: KindCustom, HoursBefore: hoursBefore}
}

// DueTomorrowKey builds the key of the default reminder
func DueTomorrowKey(taskID uuid.UUID) Key {
	return Key{TaskID: taskID, Kind: KindDueTomorrow}
}

// OverdueKey builds the key of the overdue alert
func OverdueKey(taskID uuid.UUID) Key {
	return Key{TaskID: taskID, Kind: KindOverdue}
}

// Member returns the key's identity within its kind's ledger set
func (k Key) Member() string {
	if k.Kind == KindCustom {
		return k.TaskID.String() + ":" + strconv.Itoa(k.HoursBefore)
	}
	return k.TaskID.String()
}

// String formats the key for logs and CLI output
func (k Key) String() string {
	return string(k.Kind) + "/" + k.Member()
}

// parseMember rebuilds a key from a ledger set member
func parseMember(kind Kind, member string) (Key, error) {
	if kind != KindCustom {
		id, err := uuid.Parse(member)
		if err != nil {
			return Key{}, fmt.Errorf("invalid ledger member %q: %w", member, err)
		}
		return Key{TaskID: id, Kind: kind}, nil
	}

	idPart, hoursPart, ok := strings.Cut(member, ":")
	if !ok {
		return Key{}, fmt.Errorf("invalid custom ledger member %q", member)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return Key{}, fmt.Errorf("invalid ledger member %q: %w", member, err)
	}
	hours, err := strconv.Atoi(hoursPart)
	if err != nil {
		return Key{}, fmt.Errorf("invalid ledger member %q: %w", member, err)
	}
	return CustomKey(id, hours), nil
}
