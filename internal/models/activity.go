package models

import "time"

// ActivityType is drawn from the closed set {hero,npc,session,quest} x
// {created,updated,deleted}.
type ActivityType string

const (
	HeroCreated    ActivityType = "hero_created"
	HeroUpdated    ActivityType = "hero_updated"
	HeroDeleted    ActivityType = "hero_deleted"
	NpcCreated     ActivityType = "npc_created"
	NpcUpdated     ActivityType = "npc_updated"
	NpcDeleted     ActivityType = "npc_deleted"
	SessionCreated ActivityType = "session_created"
	SessionUpdated ActivityType = "session_updated"
	SessionDeleted ActivityType = "session_deleted"
	QuestCreated   ActivityType = "quest_created"
	QuestUpdated   ActivityType = "quest_updated"
	QuestDeleted   ActivityType = "quest_deleted"
)

// Valid reports whether t belongs to the closed set.
func (t ActivityType) Valid() bool {
	switch t {
	case HeroCreated, HeroUpdated, HeroDeleted,
		NpcCreated, NpcUpdated, NpcDeleted,
		SessionCreated, SessionUpdated, SessionDeleted,
		QuestCreated, QuestUpdated, QuestDeleted:
		return true
	}
	return false
}

// Activity is an immutable audit-trail row.
type Activity struct {
	ID        ID           `json:"id"`
	HeroID    ID           `json:"heroId"`
	UserID    ID           `json:"userId"`
	Type      ActivityType `json:"type"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"createdAt"`
}
