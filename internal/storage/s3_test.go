// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import "testing"

func TestNewWithoutConfigReturnsNil(t *testing.T) {
	tests := []struct {
		name                     string
		endpoint, access, secret string
	}{
		{"no endpoint", "", "key", "secret"},
		{"no access key", "https://s3.example.com", "", "secret"},
		{"no secret", "https://s3.example.com", "key", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.endpoint, "eu-central", tt.access, tt.secret, "pages", "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c != nil {
				t.Error("expected nil client when storage is not configured")
			}
		})
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New("https://s3.example.com", "eu-central", "key", "secret", "", ""); err == nil {
		t.Error("expected error for empty bucket")
	}
}

func TestPageKey(t *testing.T) {
	if got := PageKey("ada-lovelace"); got != "portfolios/ada-lovelace/index.html" {
		t.Errorf("PageKey: got %q", got)
	}
}

func TestPageURL(t *testing.T) {
	t.Run("path style", func(t *testing.T) {
		c, err := New("https://s3.example.com/", "eu-central", "key", "secret", "pages", "")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		want := "https://s3.example.com/pages/portfolios/ada/index.html"
		if got := c.PageURL("ada"); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
		if c.Bucket() != "pages" {
			t.Errorf("bucket: got %q", c.Bucket())
		}
	})

	t.Run("public url", func(t *testing.T) {
		c, _ := New("https://s3.example.com", "eu-central", "key", "secret", "pages", "https://cdn.example.com/")
		want := "https://cdn.example.com/portfolios/ada/index.html"
		if got := c.PageURL("ada"); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}
