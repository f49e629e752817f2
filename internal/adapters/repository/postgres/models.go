package postgres

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/okian/techradar/internal/domain/model"
)

// eventModel keeps queryable columns next to the full event document.
type eventModel struct {
	ID        string         `gorm:"column:id;primaryKey"`
	Name      string         `gorm:"column:name;not null"`
	Status    string         `gorm:"column:status;not null"`
	Cancelled bool           `gorm:"column:cancelled;not null;default:false"`
	Round     int            `gorm:"column:round;not null;default:0"`
	Version   int64          `gorm:"column:version;not null"`
	Doc       datatypes.JSON `gorm:"column:doc;type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;index"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

func (eventModel) TableName() string {
	return "voting_events"
}

// voteModel stores one vote. The composite unique index is the storage
// side of the one-vote-per-identity rule.
type voteModel struct {
	Seq          int64          `gorm:"column:seq;primaryKey;autoIncrement"`
	ID           string         `gorm:"column:id;uniqueIndex;not null"`
	EventID      string         `gorm:"column:event_id;not null;uniqueIndex:ux_votes_identity,priority:1;index"`
	EventRound   int            `gorm:"column:event_round;not null;uniqueIndex:ux_votes_identity,priority:2"`
	TechnologyID string         `gorm:"column:technology_id;not null;uniqueIndex:ux_votes_identity,priority:3;index"`
	VoterKey     string         `gorm:"column:voter_key;not null;uniqueIndex:ux_votes_identity,priority:4"`
	Ring         string         `gorm:"column:ring;not null"`
	Doc          datatypes.JSON `gorm:"column:doc;type:jsonb;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null"`
}

func (voteModel) TableName() string {
	return "votes"
}

// technologyModel is one catalog entry. Seq keeps insertion order.
type technologyModel struct {
	Seq         int64     `gorm:"column:seq;primaryKey;autoIncrement"`
	ID          string    `gorm:"column:id;uniqueIndex;not null"`
	Name        string    `gorm:"column:name;not null"`
	Quadrant    string    `gorm:"column:quadrant"`
	Description string    `gorm:"column:description"`
	IsNew       bool      `gorm:"column:is_new;not null;default:false"`
	Cancelled   bool      `gorm:"column:cancelled;not null;default:false"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (technologyModel) TableName() string {
	return "technologies"
}

func technologyModelFromEntity(t model.Technology) technologyModel {
	return technologyModel{
		ID:          t.ID,
		Name:        t.Name,
		Quadrant:    t.Quadrant,
		Description: t.Description,
		IsNew:       t.IsNew,
		Cancelled:   t.Cancelled,
		UpdatedAt:   time.Now().UTC(),
	}
}

func (m technologyModel) toEntity() model.Technology {
	return model.Technology{
		ID:          m.ID,
		Name:        m.Name,
		Quadrant:    m.Quadrant,
		Description: m.Description,
		IsNew:       m.IsNew,
		Cancelled:   m.Cancelled,
	}
}

func eventModelFromEntity(ev model.VotingEvent) (eventModel, error) {
	doc, err := json.Marshal(ev)
	if err != nil {
		return eventModel{}, err
	}
	return eventModel{
		ID:        ev.ID,
		Name:      ev.Name,
		Status:    string(ev.Status),
		Cancelled: ev.Cancelled,
		Round:     ev.Round,
		Version:   ev.Version,
		Doc:       datatypes.JSON(doc),
		CreatedAt: ev.CreatedAt,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func (m eventModel) toEntity() (model.VotingEvent, error) {
	var ev model.VotingEvent
	if err := json.Unmarshal(m.Doc, &ev); err != nil {
		return model.VotingEvent{}, err
	}
	// columns are authoritative for the fields the store manages
	ev.ID = m.ID
	ev.Cancelled = m.Cancelled
	ev.Version = m.Version
	return ev, nil
}

func voteModelFromEntity(v model.Vote) (voteModel, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return voteModel{}, err
	}
	return voteModel{
		ID:           v.ID,
		EventID:      v.EventID,
		EventRound:   v.EventRound,
		TechnologyID: v.Technology.ID,
		VoterKey:     v.VoterKey,
		Ring:         string(v.Ring),
		Doc:          datatypes.JSON(doc),
		CreatedAt:    v.Timestamp,
	}, nil
}

func (m voteModel) toEntity() (model.Vote, error) {
	var v model.Vote
	if err := json.Unmarshal(m.Doc, &v); err != nil {
		return model.Vote{}, err
	}
	v.ID = m.ID
	v.EventID = m.EventID
	v.EventRound = m.EventRound
	v.Technology.ID = m.TechnologyID
	v.VoterKey = m.VoterKey
	v.Seq = m.Seq
	return v, nil
}

func toVoteEntities(rows []voteModel) ([]model.Vote, error) {
	out := make([]model.Vote, 0, len(rows))
	for _, row := range rows {
		v, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
