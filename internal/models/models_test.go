package models

import (
	"encoding/json"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"owner", RoleOwner, false},
		{"member", RoleMember, false},
		{"admin", RoleMember, true},
		{"", RoleMember, true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMembershipCanManage(t *testing.T) {
	var nobody *Membership
	if nobody.CanManage() {
		t.Error("nil membership must not manage")
	}
	if (&Membership{Role: RoleMember}).CanManage() {
		t.Error("member must not manage")
	}
	if !(&Membership{Role: RoleOwner}).CanManage() {
		t.Error("owner must manage")
	}
}

func TestRoleJSON(t *testing.T) {
	b, err := json.Marshal(Membership{Role: RoleOwner})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var m Membership
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m.Role != RoleOwner {
		t.Errorf("role round trip = %v, want owner", m.Role)
	}
}

func TestValidateMinPlayers(t *testing.T) {
	for _, n := range []int{2, 4, 20} {
		if err := ValidateMinPlayers(n); err != nil {
			t.Errorf("ValidateMinPlayers(%d) = %v, want nil", n, err)
		}
	}
	for _, n := range []int{-1, 0, 1, 21} {
		if err := ValidateMinPlayers(n); err == nil {
			t.Errorf("ValidateMinPlayers(%d) = nil, want error", n)
		}
	}
}

func TestParseResponseStatus(t *testing.T) {
	for _, s := range []string{"yes", "maybe", "no"} {
		if _, err := ParseResponseStatus(s); err != nil {
			t.Errorf("ParseResponseStatus(%q) error = %v", s, err)
		}
	}
	for _, s := range []string{"", "in", "out", "YES"} {
		if _, err := ParseResponseStatus(s); err == nil {
			t.Errorf("ParseResponseStatus(%q) expected error", s)
		}
	}
}

func TestUserName(t *testing.T) {
	if got := (&User{DisplayName: "kyara", Email: "a@b.c"}).Name(); got != "kyara" {
		t.Errorf("Name() = %q", got)
	}
	if got := (&User{Email: "maki@example.com"}).Name(); got != "maki" {
		t.Errorf("Name() = %q, want maki", got)
	}
}
