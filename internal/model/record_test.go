package model

import "testing"

func TestRecord_IsOwnedBy(t *testing.T) {
	t.Parallel()

	rec := &Record{Owner: "user-a"}

	testCases := []struct {
		name   string
		userID string
		want   bool
	}{
		{"owner", "user-a", true},
		{"other user", "user-b", false},
		{"anonymous", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rec.IsOwnedBy(tc.userID); got != tc.want {
				t.Errorf("IsOwnedBy(%q) = %v, want %v", tc.userID, got, tc.want)
			}
		})
	}
}

func TestRecord_IsOwnedBy_UnownedRecord(t *testing.T) {
	t.Parallel()

	rec := &Record{}
	if rec.IsOwnedBy("") {
		t.Error("record without owner must not match empty user")
	}
}

func TestRecordPatch_Apply(t *testing.T) {
	t.Parallel()

	rec := &Record{
		Name:            "Burton Custom",
		Length:          158,
		ChannelBindings: true,
		Owner:           "user-a",
	}

	length := 160.0
	RecordPatch{Length: &length}.Apply(rec)

	if rec.Length != 160 {
		t.Errorf("Length = %v, want 160", rec.Length)
	}
	if rec.Name != "Burton Custom" {
		t.Errorf("Name changed to %q", rec.Name)
	}
	if !rec.ChannelBindings {
		t.Error("ChannelBindings changed")
	}
	if rec.Owner != "user-a" {
		t.Errorf("Owner changed to %q", rec.Owner)
	}
}

func TestRecordPatch_ApplyFalseBool(t *testing.T) {
	t.Parallel()

	rec := &Record{ChannelBindings: true}
	off := false
	RecordPatch{ChannelBindings: &off}.Apply(rec)

	if rec.ChannelBindings {
		t.Error("ChannelBindings should be false after patch")
	}
}

func TestRecordPatch_IsEmpty(t *testing.T) {
	t.Parallel()

	if !(RecordPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}

	name := "x"
	if (RecordPatch{Name: &name}).IsEmpty() {
		t.Error("patch with name should not be empty")
	}
}

func TestKinds_Distinct(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, k := range Kinds {
		if k.Singular == "" || k.Plural == "" || k.Collection == "" {
			t.Errorf("kind %+v has empty fields", k)
		}
		if seen[k.Plural] {
			t.Errorf("duplicate plural %q", k.Plural)
		}
		seen[k.Plural] = true
	}
}
