package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/core/services"
	"github.com/jakechorley/daycare-scheduler/pkg/core/waitlist"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// decode reads a JSON body into dst and validates it
func (s *Server) decode(r *http.Request, dst any) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		return model.Reject(model.KindInvalid, "invalid request body: %v", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return model.Reject(model.KindInvalid, "%v", err)
	}
	return nil
}

// dateRange parses the from/to query parameters as dates in the server's timezone
func (s *Server) dateRange(r *http.Request) (time.Time, time.Time, error) {
	var bounds [2]time.Time
	for i, name := range []string{"from", "to"} {
		value := r.URL.Query().Get(name)
		if value == "" {
			return time.Time{}, time.Time{}, model.Reject(model.KindInvalid, "query parameter %q is required", name)
		}
		t, err := time.ParseInLocation(dateLayout, value, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, model.Reject(model.KindInvalid, "query parameter %q must be a date (YYYY-MM-DD)", name)
		}
		bounds[i] = t
	}
	return bounds[0], bounds[1], nil
}

func (s *Server) createShift(w http.ResponseWriter, r *http.Request) {
	var req shiftRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	// Days and opening hours are judged in the daycare timezone, whatever offset the client sent
	decision, err := services.CreateShift(r.Context(), s.database, s.locker, s.logger, &services.ShiftRequest{
		Actor:          actorFrom(r.Context()),
		StaffID:        req.StaffID,
		DaycareID:      req.DaycareID,
		Start:          req.Start.In(s.loc),
		End:            req.End.In(s.loc),
		ExcludeShiftID: req.ReplaceShiftID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if decision.Updated {
		status = http.StatusOK
	}
	writeJSON(w, r, status, toShiftResponse(decision.Shift))
}

func (s *Server) deactivateShift(w http.ResponseWriter, r *http.Request) {
	shift, err := services.DeactivateShift(r.Context(), s.database, s.logger, actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toShiftResponse(shift))
}

func (s *Server) listRoster(w http.ResponseWriter, r *http.Request) {
	daycareID := chi.URLParam(r, "id")

	actor := actorFrom(r.Context())
	if actor.Staff == nil || !actor.Staff.CanManage(daycareID) {
		s.writeError(w, r, model.Reject(model.KindPermission, "only staff of daycare %s can view its roster", daycareID))
		return
	}

	from, to, err := s.dateRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	shifts, err := services.ListRoster(r.Context(), s.database, s.logger, daycareID, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := make([]shiftResponse, 0, len(shifts))
	for i := range shifts {
		resp = append(resp, toShiftResponse(&shifts[i]))
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) createBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	decision, err := services.CreateBooking(r.Context(), s.database, s.locker, s.logger, &services.BookingRequest{
		Actor:      actorFrom(r.Context()),
		CustomerID: req.CustomerID,
		PetID:      req.PetID,
		DaycareID:  req.DaycareID,
		Start:      req.Start.In(s.loc),
		End:        req.End.In(s.loc),
		ProductIDs: req.ProductIDs,
		Recurrence: req.Recurrence,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toBookingDecisionResponse(decision))
}

func (s *Server) cancelBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := services.CancelBooking(r.Context(), s.database, s.logger, actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toBookingResponse(booking))
}

func (s *Server) checkIn(w http.ResponseWriter, r *http.Request) {
	booking, err := services.CheckIn(r.Context(), s.database, s.logger, actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toBookingResponse(booking))
}

func (s *Server) exportBookings(w http.ResponseWriter, r *http.Request) {
	daycareID := chi.URLParam(r, "id")

	from, to, err := s.dateRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Buffered so a failed export can still be reported as JSON
	var buf bytes.Buffer
	if _, err := services.ExportBookings(r.Context(), s.database, s.logger, actorFrom(r.Context()), daycareID, from, to, s.loc, &buf); err != nil {
		s.writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("bookings-%s-%s.xlsx", daycareID, from.Format(dateLayout))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) waitlistAction(w http.ResponseWriter, r *http.Request) {
	action, err := waitlist.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	decision, err := services.WaitlistAction(r.Context(), s.database, s.locker, s.logger, chi.URLParam(r, "id"), action, actorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, waitlistResponse{
		EntryID: decision.Entry.ID,
		From:    string(decision.From),
		To:      string(decision.To),
		Booking: toBookingResponse(decision.Booking),
	})
}

func (s *Server) setOpeningHours(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		s.writeError(w, r, model.Reject(model.KindInvalid, "day must be a number from 1 (Monday) to 7 (Sunday)"))
		return
	}

	var req openingHoursRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	entry := model.OpeningHours{
		DaycareID: chi.URLParam(r, "id"),
		Day:       model.OpeningDay(day),
		Closed:    req.Closed,
		Capacity:  req.Capacity,
	}
	if !req.Closed {
		from, err := model.ParseTimeOfDay(req.From)
		if err != nil {
			s.writeError(w, r, model.Reject(model.KindInvalid, "%v", err))
			return
		}
		to, err := model.ParseTimeOfDay(req.To)
		if err != nil {
			s.writeError(w, r, model.Reject(model.KindInvalid, "%v", err))
			return
		}
		entry.From, entry.To = from.Ptr(), to.Ptr()
	}

	saved, err := services.SetOpeningHours(r.Context(), s.database, s.logger, actorFrom(r.Context()), entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOpeningHoursResponse(saved))
}

func (s *Server) addUnavailability(w http.ResponseWriter, r *http.Request) {
	var req unavailabilityRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	entry := model.Unavailability{
		StaffID: req.StaffID,
		Mode:    model.UnavailabilityMode(req.Mode),
		Reason:  req.Reason,
	}
	if req.DayOfWeek != nil {
		day := model.UnavailabilityDay(*req.DayOfWeek)
		entry.DayOfWeek = &day
	}
	if req.Date != "" {
		date, err := time.ParseInLocation(dateLayout, req.Date, s.loc)
		if err != nil {
			s.writeError(w, r, model.Reject(model.KindInvalid, "date must be YYYY-MM-DD"))
			return
		}
		entry.Date = &date
	}

	saved, err := services.AddUnavailability(r.Context(), s.database, s.logger, actorFrom(r.Context()), entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toUnavailabilityResponse(saved))
}

func (s *Server) deactivateUnavailability(w http.ResponseWriter, r *http.Request) {
	if err := services.DeactivateUnavailability(r.Context(), s.database, s.logger, actorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) blacklistPet(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	entry, err := services.BlacklistPet(r.Context(), s.database, s.logger, actorFrom(r.Context()), req.PetID, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, blacklistResponse{
		ID:        entry.ID,
		PetID:     entry.PetID,
		DaycareID: entry.DaycareID,
		Reason:    entry.Reason,
		Active:    entry.Active,
		CreatedAt: entry.CreatedAt,
	})
}

func (s *Server) liftBlacklist(w http.ResponseWriter, r *http.Request) {
	if err := services.LiftBlacklist(r.Context(), s.database, s.logger, actorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
