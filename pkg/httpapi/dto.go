package httpapi

import (
	"time"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/core/services"
)

const dateLayout = "2006-01-02"

type shiftRequest struct {
	StaffID        string    `json:"staffId" validate:"required"`
	DaycareID      string    `json:"daycareId" validate:"required"`
	Start          time.Time `json:"start" validate:"required"`
	End            time.Time `json:"end" validate:"required"`
	ReplaceShiftID string    `json:"replaceShiftId,omitempty"`
}

type bookingRequest struct {
	CustomerID string    `json:"customerId" validate:"required"`
	PetID      string    `json:"petId" validate:"required"`
	DaycareID  string    `json:"daycareId" validate:"required"`
	Start      time.Time `json:"start" validate:"required"`
	End        time.Time `json:"end" validate:"required"`
	ProductIDs []string  `json:"productIds,omitempty"`
	Recurrence bool      `json:"recurrence"`
}

type openingHoursRequest struct {
	Closed   bool   `json:"closed"`
	From     string `json:"from,omitempty" validate:"required_if=Closed false"`
	To       string `json:"to,omitempty" validate:"required_if=Closed false"`
	Capacity int    `json:"capacity" validate:"min=0"`
}

type unavailabilityRequest struct {
	StaffID   string `json:"staffId" validate:"required"`
	Mode      string `json:"mode" validate:"required,oneof=recurring one_off"`
	DayOfWeek *int   `json:"dayOfWeek,omitempty" validate:"omitempty,min=0,max=6"`
	Date      string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Reason    string `json:"reason,omitempty"`
}

type blacklistRequest struct {
	PetID  string `json:"petId" validate:"required"`
	Reason string `json:"reason,omitempty"`
}

type shiftResponse struct {
	ID        string    `json:"id"`
	StaffID   string    `json:"staffId"`
	DaycareID string    `json:"daycareId"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Day       string    `json:"day"`
	Active    bool      `json:"active"`
}

func toShiftResponse(s *model.StaffShift) shiftResponse {
	return shiftResponse{
		ID:        s.ID,
		StaffID:   s.StaffID,
		DaycareID: s.DaycareID,
		Start:     s.Start,
		End:       s.End,
		Day:       s.Day.Format(dateLayout),
		Active:    s.Active,
	}
}

type bookingResponse struct {
	ID              string              `json:"id"`
	CustomerID      string              `json:"customerId"`
	PetID           string              `json:"petId"`
	DaycareID       string              `json:"daycareId"`
	Start           time.Time           `json:"start"`
	End             time.Time           `json:"end"`
	Status          model.BookingStatus `json:"status"`
	Active          bool                `json:"active"`
	CheckedIn       bool                `json:"checkedIn"`
	Recurrence      bool                `json:"recurrence"`
	ProductIDs      []string            `json:"productIds"`
	WaitlistEntryID string              `json:"waitlistEntryId,omitempty"`
	Advisory        string              `json:"advisory,omitempty"`
}

func toBookingResponse(b *model.Booking) bookingResponse {
	products := b.ProductIDs
	if products == nil {
		products = []string{}
	}
	return bookingResponse{
		ID:         b.ID,
		CustomerID: b.CustomerID,
		PetID:      b.PetID,
		DaycareID:  b.DaycareID,
		Start:      b.Start,
		End:        b.End,
		Status:     b.Status(),
		Active:     b.Active,
		CheckedIn:  b.CheckedIn,
		Recurrence: b.Recurrence,
		ProductIDs: products,
	}
}

func toSlotResponse(slot services.SlotResult) bookingResponse {
	resp := toBookingResponse(slot.Booking)
	resp.WaitlistEntryID = slot.WaitlistEntryID
	resp.Advisory = slot.Advisory
	return resp
}

type skippedResponse struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Code   string    `json:"code"`
	Reason string    `json:"reason"`
}

type bookingDecisionResponse struct {
	Booking  bookingResponse   `json:"booking"`
	Siblings []bookingResponse `json:"siblings"`
	Skipped  []skippedResponse `json:"skipped"`
}

func toBookingDecisionResponse(d *services.BookingDecision) bookingDecisionResponse {
	resp := bookingDecisionResponse{
		Booking:  toSlotResponse(d.SlotResult),
		Siblings: make([]bookingResponse, 0, len(d.Siblings)),
		Skipped:  make([]skippedResponse, 0, len(d.Skipped)),
	}
	for _, sibling := range d.Siblings {
		resp.Siblings = append(resp.Siblings, toSlotResponse(sibling))
	}
	for _, skipped := range d.Skipped {
		resp.Skipped = append(resp.Skipped, skippedResponse{
			Start:  skipped.Start,
			End:    skipped.End,
			Code:   string(skipped.Reason.Kind),
			Reason: skipped.Reason.Detail,
		})
	}
	return resp
}

type waitlistResponse struct {
	EntryID string          `json:"entryId"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	Booking bookingResponse `json:"booking"`
}

type openingHoursResponse struct {
	DaycareID string `json:"daycareId"`
	Day       int    `json:"day"`
	Closed    bool   `json:"closed"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Capacity  int    `json:"capacity"`
}

func toOpeningHoursResponse(h *model.OpeningHours) openingHoursResponse {
	resp := openingHoursResponse{
		DaycareID: h.DaycareID,
		Day:       int(h.Day),
		Closed:    h.Closed,
		Capacity:  h.Capacity,
	}
	if h.From != nil {
		resp.From = h.From.String()
	}
	if h.To != nil {
		resp.To = h.To.String()
	}
	return resp
}

type unavailabilityResponse struct {
	ID        string `json:"id"`
	StaffID   string `json:"staffId"`
	Mode      string `json:"mode"`
	DayOfWeek *int   `json:"dayOfWeek,omitempty"`
	Date      string `json:"date,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Active    bool   `json:"active"`
}

func toUnavailabilityResponse(u *model.Unavailability) unavailabilityResponse {
	resp := unavailabilityResponse{
		ID:      u.ID,
		StaffID: u.StaffID,
		Mode:    string(u.Mode),
		Reason:  u.Reason,
		Active:  u.Active,
	}
	if u.DayOfWeek != nil {
		day := int(*u.DayOfWeek)
		resp.DayOfWeek = &day
	}
	if u.Date != nil {
		resp.Date = u.Date.Format(dateLayout)
	}
	return resp
}

type blacklistResponse struct {
	ID        string    `json:"id"`
	PetID     string    `json:"petId"`
	DaycareID string    `json:"daycareId"`
	Reason    string    `json:"reason,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}
