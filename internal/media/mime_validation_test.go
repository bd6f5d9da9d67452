package media

import "testing"

func TestValidateSampleType(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"video/mp4", "video/mp4", false},
		{"Video/QuickTime; codecs=avc1", "video/quicktime", false},
		{"audio/wav", "audio/wav", false},
		{"image/png", "", true},
		{"", "", true},
		{";;", "", true},
	}
	for _, tc := range cases {
		got, err := ValidateSampleType(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ValidateSampleType(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ValidateSampleType(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}
