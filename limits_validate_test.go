package dfxml

import "testing"

func TestLimitsWithDefaults(t *testing.T) {
	l := (Limits{}).withDefaults()
	if l.MaxDepth == 0 || l.MaxCharData == 0 || l.MaxByteRuns == 0 || l.MaxTags == 0 {
		t.Fatal("expected defaults")
	}

	custom := Limits{MaxDepth: 7}
	custom = custom.withDefaults()
	if custom.MaxDepth != 7 {
		t.Fatalf("expected custom MaxDepth, got %d", custom.MaxDepth)
	}
}

func TestValidateName(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"filename", true},
		{"delta:changed", true},
		{"L1_cache_size", true},
		{"", false},
		{"a b", false},
		{"a\nb", false},
		{"a<b", false},
		{"a>b", false},
		{"a&b", false},
		{"a'b", false},
		{"a\"b", false},
		{"a=b", false},
		{"a/b", false},
	}
	for _, tc := range cases {
		err := validateName(tc.in)
		if tc.want && err != nil {
			t.Fatalf("%q: expected ok, got %v", tc.in, err)
		}
		if !tc.want && err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

func TestValidateRecordTags(t *testing.T) {
	if err := validateRecordTags(TagMap{"filename": "x"}); err != nil {
		t.Fatal(err)
	}
	for _, tag := range []string{"fileobject", "hashdigest", "byte_run", "run", "byte_runs", "volume"} {
		if err := validateRecordTags(TagMap{tag: "x"}); err == nil {
			t.Fatalf("%s: expected error", tag)
		}
	}
}
