package models

import "testing"

func TestParseProfile(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantUser  string
		wantName  string
		wantRole  string
		wantError bool
	}{
		{name: "Canonical Fields", raw: `{"userId":42,"email":"a@ev.io","name":"An","role":"DRIVER"}`, wantUser: "42", wantName: "An", wantRole: "DRIVER"},
		{name: "Fallback Fields", raw: `{"id":"7","email":"b@ev.io","fullName":"Binh","roles":["ADMIN","DRIVER"]}`, wantUser: "7", wantName: "Binh", wantRole: "ADMIN"},
		{name: "Email Only", raw: `{"email":"c@ev.io","username":"chau"}`, wantName: "chau"},
		{name: "No Identity", raw: `{"name":"nobody"}`, wantError: true},
		{name: "Not JSON", raw: `<html></html>`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseProfile([]byte(tt.raw))
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.UserID != tt.wantUser || p.Name != tt.wantName || p.Role != tt.wantRole {
				t.Errorf("got user=%q name=%q role=%q", p.UserID, p.Name, p.Role)
			}
			if string(p.Raw) != tt.raw {
				t.Error("expected raw payload to be kept")
			}
			if p.FetchedAt.IsZero() {
				t.Error("expected FetchedAt to be set")
			}
		})
	}

	t.Run("Key", func(t *testing.T) {
		if k := (&Profile{UserID: "1", Email: "a@ev.io"}).Key(); k != "1" {
			t.Errorf("expected user id key, got %s", k)
		}
		if k := (&Profile{Email: "a@ev.io"}).Key(); k != "a@ev.io" {
			t.Errorf("expected email key, got %s", k)
		}
	})
}
