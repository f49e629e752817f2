package api

import (
	service "github.com/okian/techradar/internal/app"
	"github.com/okian/techradar/internal/domain/model"
)

type createEventRequest struct {
	Name       string `json:"name" validate:"notblank,max=200"`
	Initiative string `json:"initiativeName" validate:"max=200"`
}

type roundRequest struct {
	Round int `json:"round" validate:"gte=0"`
}

type technologyRequest struct {
	ID          string `json:"id" validate:"max=100"`
	Name        string `json:"name" validate:"notblank,max=200"`
	Quadrant    string `json:"quadrant" validate:"max=100"`
	Description string `json:"description" validate:"max=2000"`
	IsNew       bool   `json:"isNew"`
}

func (t technologyRequest) technology() model.Technology {
	return model.Technology{ID: t.ID, Name: t.Name, Quadrant: t.Quadrant, Description: t.Description, IsNew: t.IsNew}
}

type setTechnologiesRequest struct {
	Technologies []technologyRequest `json:"technologies" validate:"dive"`
}

// technologies keeps a missing list nil, so a load installs the defaults.
func (r setTechnologiesRequest) technologies() []model.Technology {
	if r.Technologies == nil {
		return nil
	}
	out := make([]model.Technology, len(r.Technologies))
	for i, t := range r.Technologies {
		out[i] = t.technology()
	}
	return out
}

type voterRequest struct {
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Nickname  string `json:"nickname" validate:"max=100"`
}

func (v voterRequest) voter() model.Voter {
	return model.Voter{FirstName: v.FirstName, LastName: v.LastName, Nickname: v.Nickname}
}

type technologyRefRequest struct {
	ID   string `json:"id" validate:"required_without=Name"`
	Name string `json:"name" validate:"required_without=ID"`
}

type ballotRequest struct {
	Technology technologyRefRequest `json:"technology"`
	Ring       string               `json:"ring" validate:"ring"`
	Tags       []string             `json:"tags" validate:"max=20,dive,max=50"`
	Comment    string               `json:"comment" validate:"max=5000"`
}

type saveVotesRequest struct {
	Voter voterRequest    `json:"voter"`
	Votes []ballotRequest `json:"votes" validate:"required,min=1,dive"`
}

func (r saveVotesRequest) ballots() []service.Ballot {
	out := make([]service.Ballot, len(r.Votes))
	for i, b := range r.Votes {
		out[i] = service.Ballot{
			Technology: model.TechnologyRef{ID: b.Technology.ID, Name: b.Technology.Name},
			Ring:       model.Ring(b.Ring),
			Tags:       b.Tags,
			Comment:    b.Comment,
		}
	}
	return out
}

type commentRequest struct {
	Text   string `json:"text" validate:"notblank,max=5000"`
	Author string `json:"author" validate:"max=100"`
}

type authorRequest struct {
	Author string `json:"author" validate:"max=100"`
}

type recommendationRequest struct {
	Author string `json:"author" validate:"max=100"`
	Text   string `json:"text" validate:"max=5000"`
	Ring   string `json:"ring" validate:"omitempty,ring"`
}

type idResponse struct {
	ID string `json:"id"`
}

type countResponse struct {
	Count int `json:"count"`
}

type votedResponse struct {
	Voted bool `json:"voted"`
}
