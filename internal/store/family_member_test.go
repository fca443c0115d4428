package store

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/oakhollow/hearth/internal/model"
)

func TestFamilyMemberSortOrder(t *testing.T) {
	fs := NewFamilyMemberStore(testDB(t))

	for _, name := range []string{"Dana", "Maya", "Theo"} {
		role := model.RoleChild
		if name == "Dana" {
			role = model.RoleParent
		}
		if _, err := fs.Create(1, name, role, "#336699", ""); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	members, err := fs.List(1)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
	for i, name := range []string{"Dana", "Maya", "Theo"} {
		if members[i].Name != name {
			t.Errorf("members[%d] = %q, want %q", i, members[i].Name, name)
		}
		if members[i].SortOrder != i {
			t.Errorf("members[%d].SortOrder = %d, want %d", i, members[i].SortOrder, i)
		}
	}

	children, err := fs.ListChildren(1)
	if err != nil {
		t.Fatalf("list children: %v", err)
	}
	if len(children) != 2 {
		t.Errorf("expected 2 children, got %d", len(children))
	}
}

func TestFamilyMemberPIN(t *testing.T) {
	fs := NewFamilyMemberStore(testDB(t))

	m, err := fs.Create(1, "Dana", model.RoleParent, "#336699", "")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	if m.HasPIN {
		t.Error("new member should not have a PIN")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	if err := fs.SetPIN(m.ID, string(hash)); err != nil {
		t.Fatalf("set pin: %v", err)
	}

	got, err := fs.GetByID(m.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if !got.HasPIN {
		t.Error("HasPIN not set after SetPIN")
	}

	stored, err := fs.GetPINHash(m.ID)
	if err != nil {
		t.Fatalf("get pin hash: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte("1234")); err != nil {
		t.Errorf("stored hash does not match pin: %v", err)
	}

	if err := fs.SetPIN(m.ID, ""); err != nil {
		t.Fatalf("clear pin: %v", err)
	}
	stored, err = fs.GetPINHash(m.ID)
	if err != nil {
		t.Fatalf("get cleared pin: %v", err)
	}
	if stored != "" {
		t.Error("pin not cleared")
	}
}
