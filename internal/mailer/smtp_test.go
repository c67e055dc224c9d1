package mailer

import (
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	msg := BuildMessage(
		buildFromAddress("info@chemo.in", "CGI Quotations"),
		[]string{"customer@example.com", "operations@chemo.in"},
		"Quotation CGI-20250314-AB12CD34",
		"<h1>Quotation</h1>",
	)

	for _, want := range []string{
		"From: ",
		"info@chemo.in",
		"To: customer@example.com, operations@chemo.in\r\n",
		"Subject: ",
		"Content-Type: text/html; charset=UTF-8\r\n",
		"\r\n\r\n<h1>Quotation</h1>",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestBuildFromAddressWithoutName(t *testing.T) {
	if got := buildFromAddress("info@chemo.in", " "); got != "info@chemo.in" {
		t.Fatalf("from = %q", got)
	}
	got := buildFromAddress("info@chemo.in", "CGI")
	if !strings.Contains(got, "info@chemo.in") || !strings.Contains(got, "CGI") {
		t.Fatalf("from = %q", got)
	}
}

func TestSendRejectsBadInput(t *testing.T) {
	s := New(Config{})
	if err := s.Send([]string{"a@example.com"}, "s", "b"); err != ErrNotConfigured {
		t.Fatalf("unconfigured error = %v", err)
	}

	s = New(Config{Host: "smtp.example.com", Port: 465, From: "info@chemo.in"})
	if err := s.Send([]string{"not-an-address"}, "s", "b"); err == nil {
		t.Fatalf("invalid recipient accepted")
	}
	if err := s.Send([]string{" ", ""}, "s", "b"); err == nil {
		t.Fatalf("empty recipient list accepted")
	}
}
