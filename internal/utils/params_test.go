package utils

import "testing"

func TestParamsToInts(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []int64
		wantErr bool
	}{
		{name: "empty", in: "", want: nil},
		{name: "blank", in: "   ", want: nil},
		{name: "single", in: "5", want: []int64{5}},
		{name: "several", in: "4,2,5", want: []int64{4, 2, 5}},
		{name: "spaces_tolerated", in: " 4 , 2 ", want: []int64{4, 2}},
		{name: "non_integer", in: "4,x", wantErr: true},
		{name: "trailing_comma", in: "4,", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			got, err := ParamsToInts(tt.in)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}

			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
