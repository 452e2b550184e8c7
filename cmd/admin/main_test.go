package main

import (
	"reflect"
	"testing"
)

func TestParseOwnerIDs(t *testing.T) {
	tests := []struct {
		input   string
		want    []int64
		wantErr bool
	}{
		{input: "1", want: []int64{1}},
		{input: "1,2, 3", want: []int64{1, 2, 3}},
		{input: "4,,4,5,", want: []int64{4, 5}},
		{input: "", want: nil},
		{input: "1,abc", wantErr: true},
		{input: "0", wantErr: true},
		{input: "-3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseOwnerIDs(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseOwnerIDs(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseOwnerIDs(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
