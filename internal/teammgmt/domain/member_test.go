package domain

import "testing"

func TestMemberInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      MemberInput
		wantErr bool
	}{
		{"ok", MemberInput{FullName: " Ada ", Email: " ADA@example.com "}, false},
		{"no name", MemberInput{Email: "ada@example.com"}, true},
		{"no email", MemberInput{FullName: "Ada"}, true},
		{"bad email", MemberInput{FullName: "Ada", Email: "ada"}, true},
		{"display name form", MemberInput{FullName: "Ada", Email: "Ada <ada@example.com>"}, true},
	}
	for _, tt := range tests {
		in := tt.in
		in.Normalize()
		if err := in.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestMemberUpdate_Apply(t *testing.T) {
	m := &Member{FullName: "Ada", Status: MemberStatusActive}
	name, dept := "Ada L.", " Research "
	inactive := MemberStatusInactive
	if err := (&MemberUpdate{FullName: &name, Department: &dept, Status: &inactive}).Apply(m); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if m.FullName != "Ada L." || m.Department != "Research" || m.Status != MemberStatusInactive {
		t.Errorf("member = %+v", m)
	}

	blank := "  "
	if err := (&MemberUpdate{FullName: &blank}).Apply(m); err == nil {
		t.Error("blank name should be rejected")
	}
	bogus := MemberStatus("deleted")
	if err := (&MemberUpdate{Status: &bogus}).Apply(m); err == nil {
		t.Error("unknown status should be rejected")
	}
}

func TestInvitationRequest_Validate(t *testing.T) {
	r := InvitationRequest{EmailAddress: " New@Example.com "}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if r.EmailAddress != "new@example.com" || r.Role != InvitationRoleMember {
		t.Errorf("request = %+v", r)
	}
	bad := InvitationRequest{EmailAddress: "x@example.com", Role: "owner"}
	if err := bad.Validate(); err == nil {
		t.Error("owner role should be rejected")
	}
}
