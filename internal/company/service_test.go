package company

import (
	"context"
	"errors"
	"testing"

	"github.com/CGImain/product-calculator-for-chemo/internal/common"
)

func seedService(t *testing.T) (*Service, []Company) {
	t.Helper()
	store := NewMemoryStore()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	var created []Company
	for _, c := range []Company{
		{Name: "Akar Printing Press", Email: "akar@example.com", Address: "Sivakasi"},
		{Name: "Bright Offset", Email: "bright@example.com", Address: "Chennai"},
		{Name: "Chemo Graphic International", Email: "cgi@example.com", Address: "Mumbai"},
	} {
		row, err := svc.Create(context.Background(), c)
		if err != nil {
			t.Fatalf("seed %s: %v", c.Name, err)
		}
		created = append(created, row)
	}
	return svc, created
}

func TestSearchMatchesNameAndAddress(t *testing.T) {
	svc, _ := seedService(t)
	ctx := context.Background()

	rows, err := svc.Search(ctx, "offset")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Bright Offset" {
		t.Fatalf("name search rows = %+v", rows)
	}

	rows, err = svc.Search(ctx, "sivakasi")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Akar Printing Press" {
		t.Fatalf("address search rows = %+v", rows)
	}
}

func TestSearchRequiresTwoCharacters(t *testing.T) {
	svc, _ := seedService(t)
	rows, err := svc.Search(context.Background(), " a ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("short query returned %d rows", len(rows))
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := seedService(t)
	_, err := svc.Create(context.Background(), Company{Name: "", Email: "x@example.com"})
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "VALIDATION" {
		t.Fatalf("missing name error = %v", err)
	}
	_, err = svc.Create(context.Background(), Company{Name: "No Email Co", Email: "not-an-email"})
	if !errors.As(err, &appErr) || appErr.Code != "VALIDATION" {
		t.Fatalf("bad email error = %v", err)
	}
}

func TestSelectionRoundTrip(t *testing.T) {
	svc, created := seedService(t)
	ctx := context.Background()

	if _, err := svc.Selected(ctx, "u1"); err == nil {
		t.Fatalf("expected error before selection")
	}

	selected, err := svc.Select(ctx, "u1", created[1].ID)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if selected.Name != "Bright Offset" {
		t.Fatalf("selected = %+v", selected)
	}

	got, err := svc.Selected(ctx, "u1")
	if err != nil {
		t.Fatalf("Selected: %v", err)
	}
	if got.ID != created[1].ID {
		t.Fatalf("selection mismatch: %+v", got)
	}

	if _, err := svc.Select(ctx, "u1", "missing-id"); err == nil {
		t.Fatalf("expected not found for unknown company")
	}
}

func TestResolveRecipientPriority(t *testing.T) {
	svc, created := seedService(t)
	ctx := context.Background()

	if _, err := svc.Select(ctx, "u1", created[0].ID); err != nil {
		t.Fatalf("Select: %v", err)
	}

	// Explicit company wins over the stored selection.
	c, err := svc.ResolveRecipient(ctx, "u1", created[2].ID)
	if err != nil {
		t.Fatalf("ResolveRecipient explicit: %v", err)
	}
	if c.ID != created[2].ID {
		t.Fatalf("explicit resolution = %+v", c)
	}

	c, err = svc.ResolveRecipient(ctx, "u1", "")
	if err != nil {
		t.Fatalf("ResolveRecipient stored: %v", err)
	}
	if c.ID != created[0].ID {
		t.Fatalf("stored resolution = %+v", c)
	}

	_, err = svc.ResolveRecipient(ctx, "nobody", "")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "NO_COMPANY_SELECTED" {
		t.Fatalf("no selection error = %v", err)
	}
}
