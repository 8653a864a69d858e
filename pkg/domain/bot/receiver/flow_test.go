package receiver

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aeterna-studio/booking-bot/pkg/domain/bot/receiver/config"
	"github.com/aeterna-studio/booking-bot/pkg/repository/model"
)

// fakeRepo is an in-memory ledger with the same contract as the pgx store:
// a confirmed booking per date-time at most, idempotent cancel and slot ops.
type fakeRepo struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]model.Booking
	slots    map[string]bool // "2006-01-02 15:04"
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bookings: make(map[int64]model.Booking), slots: make(map[string]bool)}
}

func (r *fakeRepo) AddBooking(_ context.Context, b model.Booking) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.bookings {
		if ex.Status == model.StatusConfirmed && ex.BookingAt.Equal(b.BookingAt) {
			return 0, model.ErrSlotTaken
		}
	}
	r.nextID++
	b.ID = r.nextID
	b.Status = model.StatusConfirmed
	r.bookings[b.ID] = b
	return b.ID, nil
}

func (r *fakeRepo) UserBookings(_ context.Context, userID int64) ([]model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Booking
	for _, b := range r.bookings {
		if b.UserID == userID && b.Status == model.StatusConfirmed && b.BookingAt.After(time.Now()) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingAt.Before(out[j].BookingAt) })
	return out, nil
}

func (r *fakeRepo) CancelBooking(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookings[id]; ok {
		b.Status = model.StatusCancelled
		r.bookings[id] = b
	}
	return nil
}

func (r *fakeRepo) DailyBookings(_ context.Context, date string) ([]model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Booking
	for _, b := range r.bookings {
		if b.Status == model.StatusConfirmed && b.BookingAt.Format("2006-01-02") == date {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingAt.Before(out[j].BookingAt) })
	return out, nil
}

func (r *fakeRepo) BookedTimes(ctx context.Context, date string) ([]string, error) {
	daily, err := r.DailyBookings(ctx, date)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(daily))
	for _, b := range daily {
		out = append(out, b.BookingAt.Format("15:04"))
	}
	return out, nil
}

func (r *fakeRepo) AdminSlotTimes(_ context.Context, date string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for key := range r.slots {
		if at, err := time.ParseInLocation("2006-01-02 15:04", key, time.Local); err == nil && at.Format("2006-01-02") == date {
			out = append(out, at.Format("15:04"))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *fakeRepo) AddAdminSlot(_ context.Context, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[at.Format("2006-01-02 15:04")] = true
	return nil
}

func (r *fakeRepo) RemoveAdminSlot(_ context.Context, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, at.Format("2006-01-02 15:04"))
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		WorkHours:          config.WorkHours{Start: "10:00", End: "20:00"},
		GranularityMinutes: 15,
		Services: []model.Service{
			{ID: "manicure", Name: "Маникюр с покрытием", Price: 2500, DurationMin: 90},
			{ID: "pedicure", Name: "Педикюр", Price: 3000, DurationMin: 75},
		},
		AdminIDs: []int64{42},
	}
}

func testFlow(repo model.Repo) *Flow {
	f := NewFlow(testConfig(), repo)
	// фиксируем "сегодня"
	f.now = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
	}
	return f
}

func walkToConfirm(t *testing.T, f *Flow, sess *Session, intent Intent) {
	t.Helper()
	ctx := context.Background()

	f.StartBooking(sess, intent)
	if _, err := f.ChooseService(sess, "manicure"); err != nil {
		t.Fatalf("ChooseService failed: %v", err)
	}
	if _, err := f.ChooseDate(ctx, sess, "2025-06-20"); err != nil {
		t.Fatalf("ChooseDate failed: %v", err)
	}
	if err := f.ChooseTime(sess, "14:00"); err != nil {
		t.Fatalf("ChooseTime failed: %v", err)
	}
	if err := f.EnterName(sess, "Анна"); err != nil {
		t.Fatalf("EnterName failed: %v", err)
	}
	if err := f.EnterPhone(sess, "+79123456789"); err != nil {
		t.Fatalf("EnterPhone failed: %v", err)
	}
}

func TestPhoneValidation(t *testing.T) {
	cases := []struct {
		phone string
		ok    bool
	}{
		{"+79123456789", true},
		{"89123456789", false},
		{"+7912345678", false},   // 9 digits
		{"+791234567890", false}, // 11 digits
		{"abc", false},
	}

	for _, tc := range cases {
		f := testFlow(newFakeRepo())
		sess := &Session{State: StateEnteringPhone}
		err := f.EnterPhone(sess, tc.phone)
		if tc.ok && err != nil {
			t.Errorf("phone %q: expected accept, got %v", tc.phone, err)
		}
		if !tc.ok && !errors.Is(err, ErrBadPhone) {
			t.Errorf("phone %q: expected ErrBadPhone, got %v", tc.phone, err)
		}
		if !tc.ok && sess.Draft.Phone != "" {
			t.Errorf("phone %q: rejected input must not be recorded", tc.phone)
		}
	}
}

func TestBookingFlow_SelfService(t *testing.T) {
	repo := newFakeRepo()
	f := testFlow(repo)
	sess := &Session{}

	walkToConfirm(t, f, sess, IntentSelf)

	b, err := f.Confirm(context.Background(), sess, 100500)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if b.UserID != 100500 {
		t.Errorf("expected booking owned by user 100500, got %d", b.UserID)
	}
	if b.ServiceName != "Маникюр с покрытием" {
		t.Errorf("unexpected service name %q", b.ServiceName)
	}
	want := time.Date(2025, 6, 20, 14, 0, 0, 0, time.Local)
	if !b.BookingAt.Equal(want) {
		t.Errorf("expected booking at %v, got %v", want, b.BookingAt)
	}
	if sess.State != StateIdle || sess.Draft != (Draft{}) {
		t.Error("session must be cleared after successful confirm")
	}

	stored, _ := repo.DailyBookings(context.Background(), "2025-06-20")
	if len(stored) != 1 {
		t.Fatalf("expected exactly one stored booking, got %d", len(stored))
	}
}

func TestBookingFlow_OnBehalf(t *testing.T) {
	repo := newFakeRepo()
	f := testFlow(repo)
	sess := &Session{}

	walkToConfirm(t, f, sess, IntentOnBehalf)

	b, err := f.Confirm(context.Background(), sess, 42)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if b.UserID != 0 {
		t.Errorf("on-behalf booking must carry user id 0, got %d", b.UserID)
	}
}

func TestChooseDate_RejectsPast(t *testing.T) {
	f := testFlow(newFakeRepo())
	sess := &Session{}
	f.StartBooking(sess, IntentSelf)
	if _, err := f.ChooseService(sess, "pedicure"); err != nil {
		t.Fatalf("ChooseService failed: %v", err)
	}

	_, err := f.ChooseDate(context.Background(), sess, "2025-06-14")
	if !errors.Is(err, ErrPastDate) {
		t.Fatalf("expected ErrPastDate, got %v", err)
	}
	if sess.State != StateChoosingDate {
		t.Error("rejected date must not advance the dialogue")
	}

	// сегодняшняя дата проходит
	if _, err := f.ChooseDate(context.Background(), sess, "2025-06-15"); err != nil {
		t.Fatalf("today must be selectable: %v", err)
	}
}

func TestChooseDate_OffersComputedSlots(t *testing.T) {
	repo := newFakeRepo()
	ctx := context.Background()
	booked := time.Date(2025, 6, 20, 14, 0, 0, 0, time.Local)
	if _, err := repo.AddBooking(ctx, model.Booking{UserName: "x", BookingAt: booked}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	if err := repo.AddAdminSlot(ctx, time.Date(2025, 6, 20, 9, 0, 0, 0, time.Local)); err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	f := testFlow(repo)
	sess := &Session{}
	f.StartBooking(sess, IntentSelf)
	if _, err := f.ChooseService(sess, "manicure"); err != nil {
		t.Fatalf("ChooseService failed: %v", err)
	}

	slots, err := f.ChooseDate(ctx, sess, "2025-06-20")
	if err != nil {
		t.Fatalf("ChooseDate failed: %v", err)
	}
	if slots[0] != "09:00" {
		t.Errorf("expected admin slot 09:00 first, got %s", slots[0])
	}
	for _, s := range slots {
		if s == "14:00" {
			t.Error("booked 14:00 must not be offered")
		}
	}
	if sess.State != StateChoosingTime {
		t.Error("expected transition to time selection")
	}
}

func TestConfirm_RequiresPhoneEntered(t *testing.T) {
	repo := newFakeRepo()
	f := testFlow(repo)
	sess := &Session{}

	f.StartBooking(sess, IntentSelf)
	if _, err := f.Confirm(context.Background(), sess, 1); !errors.Is(err, ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState, got %v", err)
	}

	// состояние верное, но телефон ещё не введён
	sess.State = StateEnteringPhone
	if _, err := f.Confirm(context.Background(), sess, 1); !errors.Is(err, ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState, got %v", err)
	}

	stored, _ := repo.DailyBookings(context.Background(), "2025-06-20")
	if len(stored) != 0 {
		t.Error("inconsistent confirm must not write to the ledger")
	}
}

func TestConfirm_SlotRace(t *testing.T) {
	repo := newFakeRepo()
	f := testFlow(repo)
	ctx := context.Background()

	first := &Session{}
	second := &Session{}
	walkToConfirm(t, f, first, IntentSelf)
	walkToConfirm(t, f, second, IntentSelf)

	if _, err := f.Confirm(ctx, first, 1); err != nil {
		t.Fatalf("first confirm must succeed: %v", err)
	}
	_, err := f.Confirm(ctx, second, 2)
	if !errors.Is(err, model.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken for the loser, got %v", err)
	}
	if second.State != StateIdle {
		t.Error("losing session must be cleared; the user restarts from service selection")
	}

	stored, _ := repo.DailyBookings(ctx, "2025-06-20")
	if len(stored) != 1 {
		t.Fatalf("expected exactly one stored booking after the race, got %d", len(stored))
	}
}

func TestCancelDialogue_KeepsStoredBookings(t *testing.T) {
	repo := newFakeRepo()
	f := testFlow(repo)
	ctx := context.Background()

	sess := &Session{}
	walkToConfirm(t, f, sess, IntentSelf)
	if _, err := f.Confirm(ctx, sess, 7); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	other := &Session{}
	f.StartBooking(other, IntentSelf)
	if _, err := f.ChooseService(other, "pedicure"); err != nil {
		t.Fatalf("ChooseService failed: %v", err)
	}
	f.CancelDialogue(other)
	if other.State != StateIdle || other.Draft != (Draft{}) {
		t.Error("cancelled dialogue must drop all collected data")
	}

	stored, _ := repo.DailyBookings(ctx, "2025-06-20")
	if len(stored) != 1 {
		t.Error("cancelling a dialogue must not touch stored bookings")
	}
}

func TestCancelBooking_Idempotent(t *testing.T) {
	repo := newFakeRepo()
	f := testFlow(repo)
	ctx := context.Background()

	id, err := repo.AddBooking(ctx, model.Booking{
		UserID: 1, UserName: "n", BookingAt: time.Date(2025, 6, 20, 11, 0, 0, 0, time.Local),
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	if err := f.CancelBooking(ctx, id); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}
	if err := f.CancelBooking(ctx, id); err != nil {
		t.Fatalf("repeated cancel must succeed: %v", err)
	}
	if err := f.CancelBooking(ctx, 99999); err != nil {
		t.Fatalf("cancel of an absent id must succeed: %v", err)
	}

	stored, _ := repo.DailyBookings(ctx, "2025-06-20")
	if len(stored) != 0 {
		t.Error("cancelled booking still listed as confirmed")
	}
}

func TestCancelledSlotBecomesBookableAgain(t *testing.T) {
	repo := newFakeRepo()
	f := testFlow(repo)
	ctx := context.Background()

	sess := &Session{}
	walkToConfirm(t, f, sess, IntentSelf)
	b, err := f.Confirm(ctx, sess, 5)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if err := f.CancelBooking(ctx, b.ID); err != nil {
		t.Fatalf("CancelBooking failed: %v", err)
	}

	again := &Session{}
	walkToConfirm(t, f, again, IntentSelf)
	if _, err := f.Confirm(ctx, again, 6); err != nil {
		t.Fatalf("slot freed by cancellation must be bookable: %v", err)
	}
}

func TestEnterName_RejectsEmpty(t *testing.T) {
	f := testFlow(newFakeRepo())
	sess := &Session{State: StateEnteringName}
	if err := f.EnterName(sess, "   "); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if sess.State != StateEnteringName {
		t.Error("rejected name must not advance the dialogue")
	}
	if err := f.EnterName(sess, "Мария"); err != nil {
		t.Fatalf("EnterName failed: %v", err)
	}
	if sess.State != StateEnteringPhone {
		t.Error("expected transition to phone entry")
	}
}

func TestChooseService_Unknown(t *testing.T) {
	f := testFlow(newFakeRepo())
	sess := &Session{}
	f.StartBooking(sess, IntentSelf)
	if _, err := f.ChooseService(sess, "massage"); !errors.Is(err, ErrUnknownService) {
		t.Fatalf("expected ErrUnknownService, got %v", err)
	}
	if sess.State != StateChoosingService {
		t.Error("unknown service must not advance the dialogue")
	}
}

func TestEnterAdminPanel(t *testing.T) {
	f := testFlow(newFakeRepo())

	sess := &Session{State: StateChoosingDate, Draft: Draft{ServiceID: "manicure"}}
	if err := f.EnterAdminPanel(sess, 1); !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted for a non-admin, got %v", err)
	}
	if sess.State != StateChoosingDate {
		t.Error("denied entry must not change state")
	}

	if err := f.EnterAdminPanel(sess, 42); err != nil {
		t.Fatalf("EnterAdminPanel failed for admin: %v", err)
	}
	if sess.State != StateAdminPanel || sess.Draft != (Draft{}) {
		t.Error("entering the panel must drop the dialogue in progress")
	}
}

func TestAdminSlots(t *testing.T) {
	repo := newFakeRepo()
	f := testFlow(repo)
	ctx := context.Background()

	sess := &Session{State: StateAdminSlotAddTime, AdminDate: "2025-06-20"}
	if _, err := f.AdminAddSlot(ctx, sess, "14-30"); !errors.Is(err, ErrBadClock) {
		t.Fatalf("expected ErrBadClock, got %v", err)
	}
	at, err := f.AdminAddSlot(ctx, sess, "09:00")
	if err != nil {
		t.Fatalf("AdminAddSlot failed: %v", err)
	}
	if sess.State != StateAdminPanel {
		t.Error("expected return to the admin panel after adding a slot")
	}

	// повторное добавление и удаление отсутствующего — no-op
	if err := repo.AddAdminSlot(ctx, at); err != nil {
		t.Fatalf("repeated add must succeed: %v", err)
	}
	slots, _ := repo.AdminSlotTimes(ctx, "2025-06-20")
	if len(slots) != 1 || slots[0] != "09:00" {
		t.Fatalf("expected single 09:00 slot, got %v", slots)
	}

	if _, err := f.AdminRemoveSlot(ctx, "2025-06-20", "09:00"); err != nil {
		t.Fatalf("AdminRemoveSlot failed: %v", err)
	}
	if _, err := f.AdminRemoveSlot(ctx, "2025-06-20", "09:00"); err != nil {
		t.Fatalf("removing an absent slot must succeed: %v", err)
	}
	slots, _ = repo.AdminSlotTimes(ctx, "2025-06-20")
	if len(slots) != 0 {
		t.Fatalf("expected no slots left, got %v", slots)
	}
}
