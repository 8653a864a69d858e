package config

import (
	"reflect"
	"testing"

	"github.com/aeterna-studio/booking-bot/pkg/repository/model"
)

func TestParseAdminIDs(t *testing.T) {
	cases := []struct {
		raw  string
		want []int64
		ok   bool
	}{
		{"111", []int64{111}, true},
		{"111,222,333", []int64{111, 222, 333}, true},
		{" 111 , 222 ", []int64{111, 222}, true},
		{"", nil, false},
		{"  ", nil, false},
		{"111,abc", nil, false},
	}

	for _, tc := range cases {
		got, err := ParseAdminIDs(tc.raw)
		if tc.ok && err != nil {
			t.Errorf("ParseAdminIDs(%q) failed: %v", tc.raw, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("ParseAdminIDs(%q): expected error", tc.raw)
			}
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseAdminIDs(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestIsAdmin(t *testing.T) {
	cfg := &Config{AdminIDs: []int64{111, 222}}
	if !cfg.IsAdmin(111) {
		t.Error("111 must be admin")
	}
	if cfg.IsAdmin(333) {
		t.Error("333 must not be admin")
	}
}

func TestServiceByID(t *testing.T) {
	cfg := &Config{Services: []model.Service{
		{ID: "manicure", Name: "Маникюр с покрытием", Price: 2500, DurationMin: 90},
	}}

	svc, ok := cfg.ServiceByID("manicure")
	if !ok || svc.Name != "Маникюр с покрытием" {
		t.Errorf("expected catalog hit, got %v %v", svc, ok)
	}
	if _, ok := cfg.ServiceByID("massage"); ok {
		t.Error("unknown id must miss")
	}
}
