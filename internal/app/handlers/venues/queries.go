package venues

import (
	"context"
	"errors"
	"sort"

	"tablebook/internal/app/dto"
	"tablebook/internal/app/queries"
	"tablebook/internal/app/uow"
	domainvenue "tablebook/internal/domain/venue"
)

const (
	getVenueKey   = "venue.get"
	listVenuesKey = "venue.list"
)

type GetVenueQuery struct {
	VenueID string
}

func (q GetVenueQuery) Key() string { return getVenueKey }

type GetVenueHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetVenueHandler) Handle(ctx context.Context, q GetVenueQuery) (*dto.VenueView, error) {
	if q.VenueID == "" {
		return nil, errors.New("venue: id is required")
	}
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = unit.Rollback(ctx) }()
	ven, err := unit.Venues().ByID(ctx, domainvenue.VenueID(q.VenueID))
	if err != nil {
		return nil, err
	}
	view := dto.MapVenue(ven)
	return &view, nil
}

type ListVenuesQuery struct{}

func (q ListVenuesQuery) Key() string { return listVenuesKey }

type ListVenuesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListVenuesHandler) Handle(ctx context.Context, q ListVenuesQuery) (dto.VenueCollection, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.VenueCollection{}, err
	}
	defer func() { _ = unit.Rollback(ctx) }()
	all, err := unit.Venues().List(ctx)
	if err != nil {
		return dto.VenueCollection{}, err
	}
	items := make([]dto.VenueView, 0, len(all))
	for _, ven := range all {
		items = append(items, dto.MapVenue(ven))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return dto.VenueCollection{Items: items}, nil
}

var _ queries.Handler[GetVenueQuery, *dto.VenueView] = (*GetVenueHandler)(nil)
var _ queries.Handler[ListVenuesQuery, dto.VenueCollection] = (*ListVenuesHandler)(nil)
