package receiver

import "testing"

func TestStore_GetReturnsSameSession(t *testing.T) {
	store := NewStore()

	sess := store.Get(1)
	sess.State = StateChoosingDate
	sess.Draft.ServiceID = "manicure"

	again := store.Get(1)
	if again.State != StateChoosingDate || again.Draft.ServiceID != "manicure" {
		t.Error("Get must return the same session for the same user")
	}

	other := store.Get(2)
	if other.State != StateIdle {
		t.Error("sessions of different users must be independent")
	}
}

func TestStore_Clear(t *testing.T) {
	store := NewStore()

	store.Get(1).State = StateEnteringPhone
	store.Clear(1)

	if store.Get(1).State != StateIdle {
		t.Error("cleared user must start over with a fresh session")
	}
}

func TestSession_Reset(t *testing.T) {
	sess := &Session{
		State:     StateEnteringPhone,
		Intent:    IntentOnBehalf,
		AdminDate: "2025-06-20",
		Draft:     Draft{ServiceID: "manicure", Date: "2025-06-20", Time: "14:00", Name: "Анна", Phone: "+79123456789"},
	}
	sess.Reset()
	if *sess != (Session{}) {
		t.Errorf("Reset must drop everything, got %+v", sess)
	}
}
