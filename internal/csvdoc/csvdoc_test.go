package csvdoc

import (
	"testing"
	"time"

	"github.com/clssck/VeevaBro/internal/config"
	"github.com/clssck/VeevaBro/internal/errs"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		raw     string
		rule    config.IDRule
		want    []string
		wantErr bool
	}{
		{"3, 7,2", config.IDRuleAlphanumeric, []string{"3", "7", "2"}, false},
		{"  OBJ001 ,obj002", config.IDRuleAlphanumeric, []string{"OBJ001", "obj002"}, false},
		{"5,5,5", config.IDRuleNumeric, []string{"5", "5", "5"}, false},
		{"12a!", config.IDRuleAlphanumeric, nil, true},
		{"12a", config.IDRuleNumeric, nil, true},
		{"1,,2", config.IDRuleAlphanumeric, nil, true},
		{"1,2,", config.IDRuleAlphanumeric, nil, true},
		{"", config.IDRuleAlphanumeric, nil, true},
		{"   ", config.IDRuleNumeric, nil, true},
		{"V-001", config.IDRuleAlphanumeric, nil, true},
		{"ünï", config.IDRuleAlphanumeric, nil, true},
	}
	for _, tt := range tests {
		got, err := ParseIDs(tt.raw, tt.rule)
		if tt.wantErr {
			if !errs.IsValidationError(err) {
				t.Errorf("ParseIDs(%q, %s): expected validation error, got %v", tt.raw, tt.rule, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseIDs(%q, %s): %v", tt.raw, tt.rule, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseIDs(%q) = %v, want %v", tt.raw, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseIDs(%q)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
			}
		}
	}
}

func TestBuild(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 9, 123_000_000, time.UTC)
	doc, err := Build("product__v", "active_state__v", "3, 7,2", config.IDRuleAlphanumeric, now)
	if err != nil {
		t.Fatal(err)
	}
	want := "id,state__v\n3,active_state__v\n7,active_state__v\n2,active_state__v"
	if string(doc.Content) != want {
		t.Fatalf("unexpected content:\n%s\nwant:\n%s", doc.Content, want)
	}
	if doc.Rows != 3 {
		t.Fatalf("expected 3 rows, got %d", doc.Rows)
	}
	if doc.Filename != "product__v_2024-03-05T14-07-09-123Z.csv" {
		t.Fatalf("unexpected filename %q", doc.Filename)
	}
	if doc.ContentType != "text/csv;charset=utf-8;" {
		t.Fatalf("unexpected content type %q", doc.ContentType)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	now := time.Now()
	a, _ := Build("site__v", "inactive_state__v", "9,8,9", config.IDRuleNumeric, now)
	b, _ := Build("site__v", "inactive_state__v", "9,8,9", config.IDRuleNumeric, now)
	if string(a.Content) != string(b.Content) || a.Filename != b.Filename {
		t.Fatal("same inputs must produce identical documents")
	}
	if string(a.Content) != "id,state__v\n9,inactive_state__v\n8,inactive_state__v\n9,inactive_state__v" {
		t.Fatalf("duplicates must be kept in order, got %q", a.Content)
	}
}

func TestBuild_Validation(t *testing.T) {
	now := time.Now()
	cases := []struct {
		objectType, lifecycle, ids string
	}{
		{"", "active_state__v", "1"},
		{"product__v", "", "1"},
		{"product__v", "active_state__v", "12a!"},
	}
	for _, c := range cases {
		doc, err := Build(c.objectType, c.lifecycle, c.ids, config.IDRuleAlphanumeric, now)
		if doc != nil || !errs.IsValidationError(err) {
			t.Errorf("Build(%q, %q, %q) = %v, %v; want validation error", c.objectType, c.lifecycle, c.ids, doc, err)
		}
	}
}

func TestFilename_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, 1, 1, 1, 0, 0, 0, loc)
	if got := Filename("study__v", now); got != "study__v_2023-12-31T23-00-00-000Z.csv" {
		t.Fatalf("unexpected filename %q", got)
	}
}
