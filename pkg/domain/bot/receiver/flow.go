package receiver

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/aeterna-studio/booking-bot/pkg/domain/bot/receiver/config"
	"github.com/aeterna-studio/booking-bot/pkg/domain/schedule"
	"github.com/aeterna-studio/booking-bot/pkg/repository/model"
)

// Expected, recoverable-or-terminal dialogue outcomes. Handlers map these to
// user-facing messages; nothing here crosses the transport as a fault.
var (
	ErrUnknownService    = errors.New("unknown service")
	ErrPastDate          = errors.New("date already passed")
	ErrEmptyName         = errors.New("empty name")
	ErrBadPhone          = errors.New("bad phone format")
	ErrBadClock          = errors.New("bad time format")
	ErrInconsistentState = errors.New("inconsistent dialogue state")
	ErrNotPermitted      = errors.New("not permitted")
)

var phoneRe = regexp.MustCompile(`^\+7\d{10}$`)

// Flow drives the booking dialogue: one linear sequence of steps shared by
// self-service and admin on-behalf bookings, ending in a single ledger write.
// Catalog, working hours and the clock are injected; Flow keeps no state of
// its own — all progress lives in the Session.
type Flow struct {
	cfg  *config.Config
	repo model.Repo
	now  func() time.Time
}

func NewFlow(cfg *config.Config, repo model.Repo) *Flow {
	return &Flow{cfg: cfg, repo: repo, now: time.Now}
}

// StartBooking enters the service-selection step, dropping any previous
// attempt.
func (f *Flow) StartBooking(sess *Session, intent Intent) {
	sess.Reset()
	sess.State = StateChoosingService
	sess.Intent = intent
}

func (f *Flow) ChooseService(sess *Session, serviceID string) (model.Service, error) {
	if sess.State != StateChoosingService {
		return model.Service{}, ErrInconsistentState
	}
	svc, ok := f.cfg.ServiceByID(serviceID)
	if !ok {
		return model.Service{}, ErrUnknownService
	}
	sess.Draft.ServiceID = svc.ID
	sess.State = StateChoosingDate
	return svc, nil
}

// ChooseDate validates the date and returns the times that can be offered on
// it. The check is date-precision only: earlier-today slots stay offerable.
func (f *Flow) ChooseDate(ctx context.Context, sess *Session, date string) ([]string, error) {
	if sess.State != StateChoosingDate {
		return nil, ErrInconsistentState
	}
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return nil, ErrInconsistentState
	}
	today := f.now()
	if day.Before(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local)) {
		return nil, ErrPastDate
	}

	booked, err := f.repo.BookedTimes(ctx, date)
	if err != nil {
		return nil, err
	}
	extra, err := f.repo.AdminSlotTimes(ctx, date)
	if err != nil {
		return nil, err
	}

	slots, err := schedule.AvailableSlots(
		schedule.Hours{Start: f.cfg.WorkHours.Start, End: f.cfg.WorkHours.End},
		time.Duration(f.cfg.GranularityMinutes)*time.Minute,
		booked, extra,
	)
	if err != nil {
		return nil, err
	}

	sess.Draft.Date = date
	sess.State = StateChoosingTime
	return slots, nil
}

func (f *Flow) ChooseTime(sess *Session, t string) error {
	if sess.State != StateChoosingTime {
		return ErrInconsistentState
	}
	if _, err := schedule.ParseClock(t); err != nil {
		return ErrBadClock
	}
	sess.Draft.Time = t
	sess.State = StateEnteringName
	return nil
}

func (f *Flow) EnterName(sess *Session, text string) error {
	if sess.State != StateEnteringName {
		return ErrInconsistentState
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyName
	}
	sess.Draft.Name = text
	sess.State = StateEnteringPhone
	return nil
}

// EnterPhone records the phone on a strict +7XXXXXXXXXX match; on mismatch
// the session does not move and the user retries. Typing again before
// confirming replaces the phone.
func (f *Flow) EnterPhone(sess *Session, text string) error {
	if sess.State != StateEnteringPhone {
		return ErrInconsistentState
	}
	if !phoneRe.MatchString(text) {
		return ErrBadPhone
	}
	sess.Draft.Phone = text
	return nil
}

// Confirm performs the one ledger write of the dialogue. Whatever the
// outcome, the session is cleared: a lost slot race is terminal for this
// attempt and the user restarts from service selection.
func (f *Flow) Confirm(ctx context.Context, sess *Session, userID int64) (model.Booking, error) {
	if sess.State != StateEnteringPhone || sess.Draft.Phone == "" {
		return model.Booking{}, ErrInconsistentState
	}
	svc, ok := f.cfg.ServiceByID(sess.Draft.ServiceID)
	if !ok {
		sess.Reset()
		return model.Booking{}, ErrUnknownService
	}
	at, err := time.ParseInLocation("2006-01-02 15:04", sess.Draft.Date+" "+sess.Draft.Time, time.Local)
	if err != nil {
		sess.Reset()
		return model.Booking{}, ErrInconsistentState
	}

	b := model.Booking{
		UserID:      userID,
		UserName:    sess.Draft.Name,
		UserPhone:   sess.Draft.Phone,
		ServiceName: svc.Name,
		BookingAt:   at,
		Status:      model.StatusConfirmed,
	}
	if sess.Intent == IntentOnBehalf {
		b.UserID = 0
	}

	id, err := f.repo.AddBooking(ctx, b)
	sess.Reset()
	if err != nil {
		return model.Booking{}, err
	}
	b.ID = id
	return b, nil
}

// CancelDialogue discards the attempt from any state. Stored bookings are
// untouched: cancelling the dialogue is not cancelling a booking.
func (f *Flow) CancelDialogue(sess *Session) {
	sess.Reset()
}

// CancelBooking flips a stored booking to cancelled; idempotent.
func (f *Flow) CancelBooking(ctx context.Context, id int64) error {
	return f.repo.CancelBooking(ctx, id)
}

// ---------- Admin entry ----------

// EnterAdminPanel opens the panel for administrators only; any dialogue in
// progress is dropped. Non-admins get ErrNotPermitted with no transition.
func (f *Flow) EnterAdminPanel(sess *Session, userID int64) error {
	if !f.cfg.IsAdmin(userID) {
		return ErrNotPermitted
	}
	sess.Reset()
	sess.State = StateAdminPanel
	return nil
}

// ---------- Admin slot management ----------

// AdminAddSlot parses the typed HH:MM, combines it with the date picked
// earlier and opens the slot. Adding an existing slot is a no-op.
func (f *Flow) AdminAddSlot(ctx context.Context, sess *Session, timeText string) (time.Time, error) {
	if sess.State != StateAdminSlotAddTime || sess.AdminDate == "" {
		return time.Time{}, ErrInconsistentState
	}
	at, err := time.ParseInLocation("2006-01-02 15:04", sess.AdminDate+" "+timeText, time.Local)
	if err != nil {
		return time.Time{}, ErrBadClock
	}
	if err := f.repo.AddAdminSlot(ctx, at); err != nil {
		return time.Time{}, err
	}
	sess.State = StateAdminPanel
	sess.AdminDate = ""
	return at, nil
}

// AdminRemoveSlot closes a previously opened slot; removing an absent slot
// is a no-op.
func (f *Flow) AdminRemoveSlot(ctx context.Context, date, clock string) (time.Time, error) {
	at, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, time.Local)
	if err != nil {
		return time.Time{}, ErrBadClock
	}
	if err := f.repo.RemoveAdminSlot(ctx, at); err != nil {
		return time.Time{}, err
	}
	return at, nil
}
